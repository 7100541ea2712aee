// internal/harness/types.go

// Package harness scores system predictions against the GroundedGeo queries
// and aggregates them into per-bucket and overall metrics.
package harness

import (
	"time"

	"github.com/mwiater/groundedgeo/internal/dataset"
)

// Prediction is one system's answer to one query.
type Prediction struct {
	QueryID                 string   `json:"query_id"`
	SystemName              string   `json:"system_name"`
	RawAnswer               string   `json:"raw_answer"`
	Refused                 bool     `json:"refused"`
	AskedClarification      bool     `json:"asked_clarification"`
	FlaggedConflict         bool     `json:"flagged_conflict"`
	IncludedAsOfDate        bool     `json:"included_as_of_date"`
	PreferredOfficialSource bool     `json:"preferred_official_source"`
	EvidenceIDsUsed         []string `json:"evidence_ids_used,omitempty"`
}

// Outcome is the per-query scoring result handed to observers.
type Outcome struct {
	Bucket             dataset.Bucket
	Correct            bool
	CitationSupported  bool
	FreshnessCompliant bool
	ConflictHandled    bool
	ClarificationAsked bool
	// SystemError is set when generation failed and fault isolation recorded
	// the query instead of aborting.
	SystemError error
}

// BucketAccumulator holds the counters for a single bucket.
type BucketAccumulator struct {
	BucketName         dataset.Bucket `json:"bucket_name"`
	Total              int            `json:"total"`
	AnswerCorrect      int            `json:"answer_correct"`
	CitationSupported  int            `json:"citation_supported"`
	FreshnessCompliant int            `json:"freshness_compliant"`
	ConflictHandled    int            `json:"conflict_handled"`
	ClarificationAsked int            `json:"clarification_asked"`
	SystemErrors       int            `json:"system_errors"`
}

// Accuracy is AnswerCorrect/Total, or 0 for an empty bucket.
func (b BucketAccumulator) Accuracy() float64 {
	return ratio(b.AnswerCorrect, b.Total)
}

// record applies one outcome. Total moves exactly once per call.
func (b *BucketAccumulator) record(o Outcome) {
	b.Total++
	if o.SystemError != nil {
		b.SystemErrors++
		return
	}
	if o.Correct {
		b.AnswerCorrect++
	}
	if o.CitationSupported {
		b.CitationSupported++
	}
	if o.FreshnessCompliant {
		b.FreshnessCompliant++
	}
	if o.ConflictHandled {
		b.ConflictHandled++
	}
	if o.ClarificationAsked {
		b.ClarificationAsked++
	}
}

// EvalMetrics is the terminal snapshot of one evaluation run.
type EvalMetrics struct {
	RunID           string
	SystemName      string
	Split           string
	Timestamp       time.Time
	TotalQueries    int
	OverallAccuracy float64
	Buckets         map[dataset.Bucket]BucketAccumulator
}

// Bucket returns the counters for b. Unknown buckets yield a zero value.
func (m *EvalMetrics) Bucket(b dataset.Bucket) BucketAccumulator {
	if acc, ok := m.Buckets[b]; ok {
		return acc
	}
	return BucketAccumulator{BucketName: b}
}

// CorrectTotal sums AnswerCorrect over all buckets.
func (m *EvalMetrics) CorrectTotal() int {
	sum := 0
	for _, acc := range m.Buckets {
		sum += acc.AnswerCorrect
	}
	return sum
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0.0
	}
	return float64(num) / float64(den)
}
