package baselines

import (
	"context"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

const OracleName = "oracle"

// Oracle knows the gold answer. It scores full marks under every built-in
// predicate and is used to smoke-test datasets.
type Oracle struct{}

func NewOracle() *Oracle { return &Oracle{} }

func (*Oracle) Name() string { return OracleName }

func (*Oracle) Generate(_ context.Context, q dataset.Query, _ []dataset.Evidence) (harness.Prediction, error) {
	ids := make([]string, 0, len(q.GoldEvidence))
	for _, ev := range q.GoldEvidence {
		ids = append(ids, ev.ID)
	}
	return harness.Prediction{
		QueryID:                 q.ID,
		SystemName:              OracleName,
		RawAnswer:               q.GoldAnswer,
		IncludedAsOfDate:        q.HardCaseBucket == dataset.BucketStaleFact,
		FlaggedConflict:         q.HardCaseBucket == dataset.BucketConflictingSources,
		AskedClarification:      q.HardCaseBucket == dataset.BucketAmbiguousName,
		PreferredOfficialSource: hasOfficial(q.GoldEvidence),
		EvidenceIDsUsed:         ids,
	}, nil
}

func hasOfficial(evidence []dataset.Evidence) bool {
	for _, ev := range evidence {
		if ev.Official {
			return true
		}
	}
	return false
}
