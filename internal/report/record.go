// internal/report/record.go

// Package report turns EvalMetrics snapshots into serializable records,
// persists them and renders them for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

// TimestampLayout is the encoding used for Record.Timestamp.
const TimestampLayout = time.RFC3339Nano

// accuracyPlaces is fixed so snapshots stay diff-friendly.
const accuracyPlaces = 3

// Record is the serializable form of an EvalMetrics snapshot.
type Record struct {
	RunID           string                  `json:"run_id,omitempty"`
	SystemName      string                  `json:"system_name"`
	Split           string                  `json:"split,omitempty"`
	Timestamp       string                  `json:"timestamp"`
	TotalQueries    int                     `json:"total_queries"`
	OverallAccuracy float64                 `json:"overall_accuracy"`
	ByBucket        map[string]BucketRecord `json:"by_bucket"`
}

// BucketRecord carries every counter of a bucket.
type BucketRecord struct {
	BucketName         string `json:"bucket_name"`
	Total              int    `json:"total"`
	AnswerCorrect      int    `json:"answer_correct"`
	CitationSupported  int    `json:"citation_supported"`
	FreshnessCompliant int    `json:"freshness_compliant"`
	ConflictHandled    int    `json:"conflict_handled"`
	ClarificationAsked int    `json:"clarification_asked"`
	SystemErrors       int    `json:"system_errors"`
}

// RoundAccuracy rounds to the fixed three decimal places.
func RoundAccuracy(v float64) float64 {
	scale := math.Pow10(accuracyPlaces)
	return math.Round(v*scale) / scale
}

// ToSerializable converts m into a Record. Only OverallAccuracy loses
// precision.
func ToSerializable(m *harness.EvalMetrics) Record {
	rec := Record{
		RunID:           m.RunID,
		SystemName:      m.SystemName,
		Split:           m.Split,
		Timestamp:       m.Timestamp.Format(TimestampLayout),
		TotalQueries:    m.TotalQueries,
		OverallAccuracy: RoundAccuracy(m.OverallAccuracy),
		ByBucket:        make(map[string]BucketRecord, len(m.Buckets)),
	}
	for b, acc := range m.Buckets {
		rec.ByBucket[string(b)] = BucketRecord{
			BucketName:         string(acc.BucketName),
			Total:              acc.Total,
			AnswerCorrect:      acc.AnswerCorrect,
			CitationSupported:  acc.CitationSupported,
			FreshnessCompliant: acc.FreshnessCompliant,
			ConflictHandled:    acc.ConflictHandled,
			ClarificationAsked: acc.ClarificationAsked,
			SystemErrors:       acc.SystemErrors,
		}
	}
	return rec
}

// FromRecord rebuilds an EvalMetrics snapshot from a Record. Bucket keys
// must be known buckets; known buckets missing from the record come back
// zero-valued so the key set stays fixed.
func FromRecord(rec Record) (*harness.EvalMetrics, error) {
	ts, err := time.Parse(TimestampLayout, rec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", rec.Timestamp, err)
	}

	buckets := make(map[dataset.Bucket]harness.BucketAccumulator, len(dataset.KnownBuckets()))
	for _, b := range dataset.KnownBuckets() {
		buckets[b] = harness.BucketAccumulator{BucketName: b}
	}
	for key, br := range rec.ByBucket {
		b, err := dataset.ParseBucket(key)
		if err != nil {
			return nil, err
		}
		if br.BucketName != "" && br.BucketName != key {
			return nil, fmt.Errorf("bucket %q carries mismatched name %q", key, br.BucketName)
		}
		if br.AnswerCorrect > br.Total || br.SystemErrors > br.Total {
			return nil, fmt.Errorf("bucket %q: counts exceed total %d", key, br.Total)
		}
		buckets[b] = harness.BucketAccumulator{
			BucketName:         b,
			Total:              br.Total,
			AnswerCorrect:      br.AnswerCorrect,
			CitationSupported:  br.CitationSupported,
			FreshnessCompliant: br.FreshnessCompliant,
			ConflictHandled:    br.ConflictHandled,
			ClarificationAsked: br.ClarificationAsked,
			SystemErrors:       br.SystemErrors,
		}
	}

	return &harness.EvalMetrics{
		RunID:           rec.RunID,
		SystemName:      rec.SystemName,
		Split:           rec.Split,
		Timestamp:       ts,
		TotalQueries:    rec.TotalQueries,
		OverallAccuracy: rec.OverallAccuracy,
		Buckets:         buckets,
	}, nil
}

// Marshal encodes m as indented JSON.
func Marshal(m *harness.EvalMetrics) ([]byte, error) {
	return json.MarshalIndent(ToSerializable(m), "", "  ")
}

// Unmarshal decodes a JSON record produced by Marshal.
func Unmarshal(data []byte) (*harness.EvalMetrics, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("error parsing metrics: %w", err)
	}
	return FromRecord(rec)
}
