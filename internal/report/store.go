package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mwiater/groundedgeo/internal/harness"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// SnapshotPath returns the file WriteFile uses for m inside dir.
func SnapshotPath(dir string, m *harness.EvalMetrics) string {
	name := slugify(m.SystemName)
	if m.Split != "" {
		name += "_" + slugify(m.Split)
	}
	return filepath.Join(dir, name+".json")
}

// WriteFile stores m as an indented JSON snapshot in dir, replacing any
// previous snapshot of the same system and split.
func WriteFile(dir string, m *harness.EvalMetrics) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating results directory: %w", err)
	}
	data, err := Marshal(m)
	if err != nil {
		return "", fmt.Errorf("error encoding metrics: %w", err)
	}
	path := SnapshotPath(dir, m)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("error writing metrics: %w", err)
	}
	return path, nil
}

// ReadFile loads a snapshot written by WriteFile.
func ReadFile(path string) (*harness.EvalMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading metrics: %w", err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// AppendHistory appends one JSONL line for m to path.
func AppendHistory(path string, m *harness.EvalMetrics) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating history directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("error opening history file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(ToSerializable(m)); err != nil {
		return fmt.Errorf("error writing history: %w", err)
	}
	return nil
}

// ReadHistory returns the records of a history file in file order. Blank
// lines are skipped.
func ReadHistory(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening history file: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("history line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}
	return records, nil
}

// ReadSnapshots loads the snapshots stored at path: every record of a
// .jsonl history file, or the single snapshot of any other file.
func ReadSnapshots(path string) ([]*harness.EvalMetrics, error) {
	if !strings.EqualFold(filepath.Ext(path), ".jsonl") {
		m, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []*harness.EvalMetrics{m}, nil
	}

	records, err := ReadHistory(path)
	if err != nil {
		return nil, err
	}
	snapshots := make([]*harness.EvalMetrics, 0, len(records))
	for i, rec := range records {
		m, err := FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", path, i+1, err)
		}
		snapshots = append(snapshots, m)
	}
	return snapshots, nil
}

// slugify converts a string into a filesystem-friendly slug.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ":", "_")
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	if s == "" {
		return "unnamed"
	}
	return s
}
