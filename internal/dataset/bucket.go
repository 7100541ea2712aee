// internal/dataset/bucket.go
package dataset

import (
	"errors"
	"fmt"
)

// Bucket names a hard-case category used to segment queries for reporting.
type Bucket string

const (
	BucketBoundaryAdjacent        Bucket = "boundary_adjacent"
	BucketAmbiguousName           Bucket = "ambiguous_name"
	BucketOverlappingJurisdiction Bucket = "overlapping_jurisdiction"
	BucketStaleFact               Bucket = "stale_fact"
	BucketConflictingSources      Bucket = "conflicting_sources"
)

var knownBuckets = []Bucket{
	BucketBoundaryAdjacent,
	BucketAmbiguousName,
	BucketOverlappingJurisdiction,
	BucketStaleFact,
	BucketConflictingSources,
}

// ErrUnknownBucket is matched by every *UnknownBucketError.
var ErrUnknownBucket = errors.New("unknown hard-case bucket")

// UnknownBucketError reports a bucket label outside the known set.
type UnknownBucketError struct {
	QueryID string
	Bucket  Bucket
}

func (e *UnknownBucketError) Error() string {
	if e.QueryID == "" {
		return fmt.Sprintf("unknown hard-case bucket %q", string(e.Bucket))
	}
	return fmt.Sprintf("query %q: unknown hard-case bucket %q", e.QueryID, string(e.Bucket))
}

// Is lets errors.Is(err, ErrUnknownBucket) match.
func (e *UnknownBucketError) Is(target error) bool {
	return target == ErrUnknownBucket
}

// KnownBuckets returns the fixed bucket set in reporting order. The returned
// slice is a copy.
func KnownBuckets() []Bucket {
	out := make([]Bucket, len(knownBuckets))
	copy(out, knownBuckets)
	return out
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	for _, known := range knownBuckets {
		if b == known {
			return true
		}
	}
	return false
}

func (b Bucket) String() string { return string(b) }

// ParseBucket converts a raw label into a Bucket.
func ParseBucket(s string) (Bucket, error) {
	b := Bucket(s)
	if !b.Valid() {
		return "", &UnknownBucketError{Bucket: b}
	}
	return b, nil
}
