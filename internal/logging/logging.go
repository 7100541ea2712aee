// Package logging routes the standard logger to stdout and an optional log
// file, and provides the event helpers used across groundedgeo.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	mu      sync.Mutex
	logFile *os.File
	debug   atomic.Bool
)

// Init sends log output to stdout and, when logPath is set, appends it to
// that file as well.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file and points the logger back at stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// SetDebug toggles Debugf and LogPrediction output.
func SetDebug(enabled bool) { debug.Store(enabled) }

// DebugEnabled reports the current debug setting.
func DebugEnabled() bool { return debug.Load() }

func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

// Debugf logs only when debug output is enabled.
func Debugf(format string, args ...any) {
	if !debug.Load() {
		return
	}
	log.Println("[DEBUG] " + fmt.Sprintf(format, args...))
}

// LogPrediction records the raw prediction a system produced for a query.
// It is a debug-level event.
func LogPrediction(system, split, queryID string, payload any) {
	if !debug.Load() {
		return
	}
	log.Println(buildPredictionMessage(system, split, queryID, payload))
}

func buildPredictionMessage(system, split, queryID string, payload any) string {
	systemValue := strings.TrimSpace(system)
	if systemValue == "" {
		systemValue = "unknown"
	}
	splitValue := strings.TrimSpace(split)
	if splitValue == "" {
		splitValue = "unknown"
	}
	parts := []string{"[PREDICTION]"}
	parts = append(parts, fmt.Sprintf("system=%s", systemValue))
	parts = append(parts, fmt.Sprintf("split=%s", splitValue))
	if queryID = strings.TrimSpace(queryID); queryID != "" {
		parts = append(parts, fmt.Sprintf("query=%s", queryID))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
