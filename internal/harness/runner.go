package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mwiater/groundedgeo/internal/dataset"
)

// Clock supplies the capture time stamped on EvalMetrics.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Runner evaluates systems against a fixed, validated query list.
type Runner struct {
	queries        []dataset.Query
	predicate      Predicate
	clock          Clock
	observers      []Observer
	faultIsolation bool
	newRunID       func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithPredicate replaces the default LexicalOverlap predicate.
func WithPredicate(p Predicate) Option {
	return func(r *Runner) {
		if p != nil {
			r.predicate = p
		}
	}
}

// WithClock replaces the wall clock used for EvalMetrics.Timestamp.
func WithClock(c Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithObserver adds a progress observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithFaultIsolation makes generation errors count as system_error outcomes
// for the failing query instead of aborting the run. Invariant violations
// and context cancellation still abort.
func WithFaultIsolation(enabled bool) Option {
	return func(r *Runner) { r.faultIsolation = enabled }
}

// WithRunID replaces the run id generator (random UUIDs by default).
func WithRunID(gen func() string) Option {
	return func(r *Runner) {
		if gen != nil {
			r.newRunID = gen
		}
	}
}

// NewRunner validates queries and returns a Runner over them. An unknown
// bucket anywhere in the list is reported here, before any accumulation.
func NewRunner(queries []dataset.Query, opts ...Option) (*Runner, error) {
	if err := dataset.Validate(queries); err != nil {
		return nil, err
	}
	owned := make([]dataset.Query, len(queries))
	copy(owned, queries)

	r := &Runner{
		queries:   owned,
		predicate: LexicalOverlap,
		clock:     SystemClock,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run evaluates sys on the queries tagged with split, in input order, and
// returns the frozen metrics. Any error aborts the run and no metrics are
// returned.
func (r *Runner) Run(ctx context.Context, sys System, split string) (*EvalMetrics, error) {
	if sys == nil {
		return nil, ErrNilSystem
	}
	name := sys.Name()
	queries := dataset.FilterSplit(r.queries, split)

	buckets := make(map[dataset.Bucket]*BucketAccumulator)
	for _, b := range dataset.KnownBuckets() {
		buckets[b] = &BucketAccumulator{BucketName: b}
	}

	for _, o := range r.observers {
		o.RunStarted(name, split, len(queries))
	}

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %q on %q aborted before query %q: %w", name, split, q.ID, err)
		}

		evidence := evidenceFor(sys, q)
		pred, err := sys.Generate(ctx, q, evidence)

		var outcome Outcome
		switch {
		case err != nil:
			if !r.faultIsolation || ctx.Err() != nil {
				return nil, fmt.Errorf("system %q failed on query %q: %w", name, q.ID, err)
			}
			outcome = Outcome{Bucket: q.HardCaseBucket, SystemError: err}
		case pred.QueryID != q.ID:
			return nil, &InvariantViolation{System: name, QueryID: q.ID, PredictionQueryID: pred.QueryID}
		default:
			outcome = r.score(pred, q)
		}

		buckets[q.HardCaseBucket].record(outcome)

		for _, o := range r.observers {
			o.QueryEvaluated(name, i+1, len(queries), q, pred, outcome)
		}
	}

	metrics := r.freeze(name, split, len(queries), buckets)
	for _, o := range r.observers {
		o.RunFinished(metrics)
	}
	return metrics, nil
}

// score applies the predicate and the compliance checks. The checks are
// independent of answer correctness.
func (r *Runner) score(p Prediction, q dataset.Query) Outcome {
	return Outcome{
		Bucket:             q.HardCaseBucket,
		Correct:            r.predicate.IsCorrect(p, q),
		CitationSupported:  citationSupported(p, q),
		FreshnessCompliant: p.IncludedAsOfDate,
		ConflictHandled:    p.FlaggedConflict,
		ClarificationAsked: p.AskedClarification,
	}
}

// citationSupported requires at least one cited id, all of them drawn from
// the query's gold evidence.
func citationSupported(p Prediction, q dataset.Query) bool {
	if len(p.EvidenceIDsUsed) == 0 {
		return false
	}
	gold := q.GoldEvidenceIDs()
	for _, id := range p.EvidenceIDsUsed {
		if _, ok := gold[id]; !ok {
			return false
		}
	}
	return true
}

func (r *Runner) freeze(name, split string, total int, buckets map[dataset.Bucket]*BucketAccumulator) *EvalMetrics {
	snapshot := make(map[dataset.Bucket]BucketAccumulator, len(buckets))
	correct, counted := 0, 0
	for b, acc := range buckets {
		snapshot[b] = *acc
		correct += acc.AnswerCorrect
		counted += acc.Total
	}
	return &EvalMetrics{
		RunID:           r.newRunID(),
		SystemName:      name,
		Split:           split,
		Timestamp:       r.clock.Now(),
		TotalQueries:    total,
		OverallAccuracy: ratio(correct, counted),
		Buckets:         snapshot,
	}
}
