// internal/dataset/types.go

// Package dataset holds the evaluation items of the GroundedGeo benchmark and
// the loader that turns dataset documents into them.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Evidence is one supporting passage attached to a query.
type Evidence struct {
	ID       string `json:"id" yaml:"id"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
	Text     string `json:"text" yaml:"text"`
	Official bool   `json:"official,omitempty" yaml:"official,omitempty"`
	AsOf     string `json:"as_of,omitempty" yaml:"as_of,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Query is a single evaluation item.
type Query struct {
	ID             string     `json:"id" yaml:"id"`
	Split          string     `json:"split" yaml:"split"`
	Question       string     `json:"question,omitempty" yaml:"question,omitempty"`
	GoldAnswer     string     `json:"gold_answer" yaml:"gold_answer"`
	GoldEvidence   []Evidence `json:"gold_evidence,omitempty" yaml:"gold_evidence,omitempty"`
	HardCaseBucket Bucket     `json:"hard_case_bucket" yaml:"hard_case_bucket"`
}

// GoldEvidenceIDs returns the set of gold evidence identifiers.
func (q Query) GoldEvidenceIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(q.GoldEvidence))
	for _, ev := range q.GoldEvidence {
		ids[ev.ID] = struct{}{}
	}
	return ids
}

// Dataset is a loaded benchmark document.
type Dataset struct {
	Queries  []Query        `json:"queries" yaml:"queries"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ErrInvalidQuery is returned for structurally broken queries (missing or
// duplicated ids).
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks the dataset-level invariants of queries: every bucket is
// known and ids are present and unique.
func Validate(queries []Query) error {
	seen := make(map[string]struct{}, len(queries))
	for i, q := range queries {
		if strings.TrimSpace(q.ID) == "" {
			return fmt.Errorf("%w: query %d has no id", ErrInvalidQuery, i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate query id %q", ErrInvalidQuery, q.ID)
		}
		seen[q.ID] = struct{}{}
		if !q.HardCaseBucket.Valid() {
			return &UnknownBucketError{QueryID: q.ID, Bucket: q.HardCaseBucket}
		}
	}
	return nil
}

// FilterSplit returns the queries tagged with split, preserving input order.
func FilterSplit(queries []Query, split string) []Query {
	out := make([]Query, 0, len(queries))
	for _, q := range queries {
		if q.Split == split {
			out = append(out, q)
		}
	}
	return out
}

// Splits returns the distinct split tags in first-seen order.
func (d Dataset) Splits() []string {
	var splits []string
	seen := make(map[string]struct{})
	for _, q := range d.Queries {
		if _, ok := seen[q.Split]; ok {
			continue
		}
		seen[q.Split] = struct{}{}
		splits = append(splits, q.Split)
	}
	return splits
}

// Counts tallies queries per split and bucket. Every known bucket is present
// for every split, zero-valued when unused.
func (d Dataset) Counts() map[string]map[Bucket]int {
	counts := make(map[string]map[Bucket]int)
	for _, split := range d.Splits() {
		perBucket := make(map[Bucket]int, len(knownBuckets))
		for _, b := range knownBuckets {
			perBucket[b] = 0
		}
		counts[split] = perBucket
	}
	for _, q := range d.Queries {
		counts[q.Split][q.HardCaseBucket]++
	}
	return counts
}
