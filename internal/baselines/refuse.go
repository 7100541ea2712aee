package baselines

import (
	"context"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

const RefuseName = "refuse"

const refusalText = "I don't know."

// Refuse sees no evidence and declines every question.
type Refuse struct{}

func NewRefuse() *Refuse { return &Refuse{} }

func (*Refuse) Name() string { return RefuseName }

// EvidenceFor withholds all evidence.
func (*Refuse) EvidenceFor(dataset.Query) []dataset.Evidence { return nil }

func (*Refuse) Generate(_ context.Context, q dataset.Query, _ []dataset.Evidence) (harness.Prediction, error) {
	return harness.Prediction{
		QueryID:    q.ID,
		SystemName: RefuseName,
		RawAnswer:  refusalText,
		Refused:    true,
	}, nil
}
