// Package telemetry implements harness observers: progress log lines and
// prometheus counters for evaluation runs.
package telemetry

import (
	"github.com/fatih/color"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
	"github.com/mwiater/groundedgeo/internal/logging"
	"github.com/mwiater/groundedgeo/internal/util"
)

// answerPreviewRunes bounds the answer shown on FAIL lines.
const answerPreviewRunes = 80

var (
	passLabel  = color.New(color.FgGreen).SprintFunc()
	failLabel  = color.New(color.FgRed).SprintFunc()
	errorLabel = color.New(color.FgYellow).SprintFunc()
)

// Logger reports run progress through the logging package. Per-query lines
// are only written when Verbose is set.
type Logger struct {
	Verbose bool
}

var _ harness.Observer = (*Logger)(nil)

func (l *Logger) RunStarted(system, split string, queries int) {
	logging.LogEvent("Running %s on %s split (%d queries)...", system, split, queries)
}

func (l *Logger) QueryEvaluated(system string, index, total int, q dataset.Query, p harness.Prediction, o harness.Outcome) {
	logging.LogPrediction(system, q.Split, q.ID, p)
	if !l.Verbose {
		return
	}
	if o.SystemError != nil {
		logging.LogEvent("[%d/%d] %s / %s (%s) - %s: %v", index, total, system, q.ID, q.HardCaseBucket, errorLabel("ERROR"), o.SystemError)
		return
	}
	if o.Correct {
		logging.LogEvent("[%d/%d] %s / %s (%s) - %s", index, total, system, q.ID, q.HardCaseBucket, passLabel("PASS"))
		return
	}
	logging.LogEvent("[%d/%d] %s / %s (%s) - %s: %q", index, total, system, q.ID, q.HardCaseBucket, failLabel("FAIL"),
		util.Preview(p.RawAnswer, answerPreviewRunes))
}

func (l *Logger) RunFinished(m *harness.EvalMetrics) {
	logging.LogEvent("  %s [%s] accuracy: %.1f%% (%d/%d)", m.SystemName, m.Split, m.OverallAccuracy*100, m.CorrectTotal(), m.TotalQueries)
}
