package harness

import (
	"context"

	"github.com/mwiater/groundedgeo/internal/dataset"
)

// System is the capability every system under test provides: produce exactly
// one Prediction for a query given the evidence it is shown.
type System interface {
	Name() string
	Generate(ctx context.Context, q dataset.Query, evidence []dataset.Evidence) (Prediction, error)
}

// EvidenceSelector is implemented by systems that choose their own evidence
// (none, a retrieved subset, ...). Systems without it are shown the query's
// gold evidence.
type EvidenceSelector interface {
	EvidenceFor(q dataset.Query) []dataset.Evidence
}

// Observer receives progress notifications from a Runner. Implementations
// must be safe for concurrent use when one observer is shared by runs on
// several goroutines.
type Observer interface {
	RunStarted(system, split string, queries int)
	QueryEvaluated(system string, index, total int, q dataset.Query, p Prediction, o Outcome)
	RunFinished(m *EvalMetrics)
}

func evidenceFor(sys System, q dataset.Query) []dataset.Evidence {
	if sel, ok := sys.(EvidenceSelector); ok {
		return sel.EvidenceFor(q)
	}
	return q.GoldEvidence
}
