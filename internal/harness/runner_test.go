package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/groundedgeo/internal/dataset"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// answerFunc lets a test decide the prediction for every query.
type answerFunc func(q dataset.Query, evidence []dataset.Evidence) (Prediction, error)

type stubSystem struct {
	name   string
	answer answerFunc
	calls  []string
}

func (s *stubSystem) Name() string { return s.name }

func (s *stubSystem) Generate(_ context.Context, q dataset.Query, evidence []dataset.Evidence) (Prediction, error) {
	s.calls = append(s.calls, q.ID)
	return s.answer(q, evidence)
}

// selectingSystem also implements EvidenceSelector.
type selectingSystem struct {
	stubSystem
	selected []dataset.Evidence
}

func (s *selectingSystem) EvidenceFor(dataset.Query) []dataset.Evidence { return s.selected }

func alwaysCorrect(name string) *stubSystem {
	return &stubSystem{name: name, answer: func(q dataset.Query, _ []dataset.Evidence) (Prediction, error) {
		return Prediction{QueryID: q.ID, SystemName: name, RawAnswer: q.GoldAnswer}, nil
	}}
}

func scenarioQueries() []dataset.Query {
	return []dataset.Query{
		{ID: "q1", Split: "dev", GoldAnswer: "Platte County", HardCaseBucket: dataset.BucketBoundaryAdjacent},
		{ID: "q2", Split: "test", GoldAnswer: "Springfield Illinois", HardCaseBucket: dataset.BucketAmbiguousName},
		{ID: "q3", Split: "dev", GoldAnswer: "Nuuk Greenland", HardCaseBucket: dataset.BucketStaleFact},
		{ID: "q4", Split: "train", GoldAnswer: "Kosovo", HardCaseBucket: dataset.BucketConflictingSources},
		{ID: "q5", Split: "dev", GoldAnswer: "Astana Kazakhstan", HardCaseBucket: dataset.BucketStaleFact},
	}
}

func newTestRunner(t *testing.T, queries []dataset.Query, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithClock(ClockFunc(func() time.Time { return fixedTime })),
		WithRunID(func() string { return "run-1" }),
	}
	r, err := NewRunner(queries, append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func TestRunAlwaysCorrectDevScenario(t *testing.T) {
	r := newTestRunner(t, scenarioQueries())

	m, err := r.Run(context.Background(), alwaysCorrect("oracle"), "dev")
	require.NoError(t, err)

	assert.Equal(t, "oracle", m.SystemName)
	assert.Equal(t, "dev", m.Split)
	assert.Equal(t, "run-1", m.RunID)
	assert.True(t, m.Timestamp.Equal(fixedTime))
	assert.Equal(t, 3, m.TotalQueries)
	assert.Equal(t, 1.0, m.OverallAccuracy)

	ba := m.Bucket(dataset.BucketBoundaryAdjacent)
	assert.Equal(t, 1, ba.Total)
	assert.Equal(t, 1, ba.AnswerCorrect)
	sf := m.Bucket(dataset.BucketStaleFact)
	assert.Equal(t, 2, sf.Total)
	assert.Equal(t, 2, sf.AnswerCorrect)

	for _, b := range []dataset.Bucket{dataset.BucketAmbiguousName, dataset.BucketOverlappingJurisdiction, dataset.BucketConflictingSources} {
		acc, ok := m.Buckets[b]
		require.True(t, ok, "bucket %s missing", b)
		assert.Equal(t, 0, acc.Total, "bucket %s", b)
		assert.Equal(t, 0.0, acc.Accuracy(), "bucket %s", b)
	}
}

func TestRunReportsEveryKnownBucket(t *testing.T) {
	r := newTestRunner(t, scenarioQueries())

	for _, split := range []string{"dev", "test", "train", "holdout"} {
		m, err := r.Run(context.Background(), alwaysCorrect("oracle"), split)
		require.NoError(t, err)
		require.Len(t, m.Buckets, len(dataset.KnownBuckets()), "split %s", split)
		for _, b := range dataset.KnownBuckets() {
			acc, ok := m.Buckets[b]
			require.True(t, ok, "split %s bucket %s", split, b)
			assert.Equal(t, b, acc.BucketName)
		}
	}
}

func TestRunEmptySplitHasZeroAccuracy(t *testing.T) {
	r := newTestRunner(t, scenarioQueries())

	m, err := r.Run(context.Background(), alwaysCorrect("oracle"), "holdout")
	require.NoError(t, err)
	assert.Equal(t, 0, m.TotalQueries)
	assert.Equal(t, 0.0, m.OverallAccuracy)
}

func TestRunAbortsOnSystemError(t *testing.T) {
	queries := []dataset.Query{
		{ID: "a", Split: "dev", GoldAnswer: "Andorra la Vella", HardCaseBucket: dataset.BucketBoundaryAdjacent},
		{ID: "b", Split: "dev", GoldAnswer: "Baarle-Hertog", HardCaseBucket: dataset.BucketOverlappingJurisdiction},
		{ID: "c", Split: "dev", GoldAnswer: "Ceuta", HardCaseBucket: dataset.BucketConflictingSources},
	}
	boom := errors.New("model backend unavailable")
	sys := &stubSystem{name: "flaky", answer: func(q dataset.Query, _ []dataset.Evidence) (Prediction, error) {
		if q.ID == "b" {
			return Prediction{}, boom
		}
		return Prediction{QueryID: q.ID, RawAnswer: q.GoldAnswer}, nil
	}}
	obs := &recordingObserver{}
	r := newTestRunner(t, queries, WithObserver(obs))

	m, err := r.Run(context.Background(), sys, "dev")
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, sys.calls, "run must stop at the failing query")
	assert.Zero(t, obs.finished, "a failed run must not report final metrics")
}

func TestRunFaultIsolationRecordsSystemErrors(t *testing.T) {
	queries := []dataset.Query{
		{ID: "a", Split: "dev", GoldAnswer: "Andorra la Vella", HardCaseBucket: dataset.BucketBoundaryAdjacent},
		{ID: "b", Split: "dev", GoldAnswer: "Baarle-Hertog", HardCaseBucket: dataset.BucketBoundaryAdjacent},
		{ID: "c", Split: "dev", GoldAnswer: "Ceuta", HardCaseBucket: dataset.BucketConflictingSources},
	}
	sys := &stubSystem{name: "flaky", answer: func(q dataset.Query, _ []dataset.Evidence) (Prediction, error) {
		if q.ID == "b" {
			return Prediction{}, errors.New("timeout")
		}
		return Prediction{QueryID: q.ID, RawAnswer: q.GoldAnswer, AskedClarification: true}, nil
	}}
	r := newTestRunner(t, queries, WithFaultIsolation(true))

	m, err := r.Run(context.Background(), sys, "dev")
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalQueries)

	ba := m.Bucket(dataset.BucketBoundaryAdjacent)
	assert.Equal(t, 2, ba.Total)
	assert.Equal(t, 1, ba.AnswerCorrect)
	assert.Equal(t, 1, ba.SystemErrors)
	assert.Equal(t, 1, ba.ClarificationAsked, "errored queries never count toward compliance")
	assert.InDelta(t, 2.0/3.0, m.OverallAccuracy, 1e-9)
}

func TestRunInvariantViolation(t *testing.T) {
	sys := &stubSystem{name: "confused", answer: func(q dataset.Query, _ []dataset.Evidence) (Prediction, error) {
		return Prediction{QueryID: "not-" + q.ID}, nil
	}}
	// Fault isolation does not cover broken contracts.
	r := newTestRunner(t, scenarioQueries(), WithFaultIsolation(true))

	m, err := r.Run(context.Background(), sys, "dev")
	assert.Nil(t, m)
	require.ErrorIs(t, err, ErrInvariantViolation)
	var iv *InvariantViolation
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, "q1", iv.QueryID)
	assert.Equal(t, "not-q1", iv.PredictionQueryID)
}

func TestNewRunnerUnknownBucket(t *testing.T) {
	queries := scenarioQueries()
	queries[3].HardCaseBucket = "enclave"

	r, err := NewRunner(queries)
	assert.Nil(t, r)
	require.ErrorIs(t, err, dataset.ErrUnknownBucket)
	var ube *dataset.UnknownBucketError
	require.ErrorAs(t, err, &ube)
	assert.Equal(t, "q4", ube.QueryID)
}

func TestRunNilSystem(t *testing.T) {
	r := newTestRunner(t, scenarioQueries())
	_, err := r.Run(context.Background(), nil, "dev")
	assert.ErrorIs(t, err, ErrNilSystem)
}

func TestRunCancelledContext(t *testing.T) {
	r := newTestRunner(t, scenarioQueries())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := r.Run(ctx, alwaysCorrect("oracle"), "dev")
	assert.Nil(t, m)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOverallAccuracyMatchesRecomputation(t *testing.T) {
	var queries []dataset.Query
	buckets := dataset.KnownBuckets()
	for i := 0; i < 23; i++ {
		queries = append(queries, dataset.Query{
			ID:             fmt.Sprintf("q%02d", i),
			Split:          "test",
			GoldAnswer:     fmt.Sprintf("Somewhere number%02d", i),
			HardCaseBucket: buckets[i%len(buckets)],
		})
	}
	var perQuery []bool
	sys := &stubSystem{name: "alternating", answer: func(q dataset.Query, _ []dataset.Evidence) (Prediction, error) {
		correct := len(perQuery)%3 != 0
		perQuery = append(perQuery, correct)
		answer := "no idea"
		if correct {
			answer = q.GoldAnswer
		}
		return Prediction{QueryID: q.ID, RawAnswer: answer}, nil
	}}
	r := newTestRunner(t, queries)

	m, err := r.Run(context.Background(), sys, "test")
	require.NoError(t, err)

	want := 0
	for _, ok := range perQuery {
		if ok {
			want++
		}
	}
	assert.InDelta(t, float64(want)/float64(len(perQuery)), m.OverallAccuracy, 1e-12)
	assert.Equal(t, want, m.CorrectTotal())

	totals := 0
	for _, b := range buckets {
		acc := m.Bucket(b)
		assert.GreaterOrEqual(t, acc.AnswerCorrect, 0)
		assert.LessOrEqual(t, acc.AnswerCorrect, acc.Total)
		assert.Equal(t, len(dataset.FilterSplit(filterBucket(queries, b), "test")), acc.Total)
		totals += acc.Total
	}
	assert.Equal(t, m.TotalQueries, totals)
}

func filterBucket(queries []dataset.Query, b dataset.Bucket) []dataset.Query {
	var out []dataset.Query
	for _, q := range queries {
		if q.HardCaseBucket == b {
			out = append(out, q)
		}
	}
	return out
}

func TestRunIsDeterministic(t *testing.T) {
	r := newTestRunner(t, scenarioQueries())
	first, err := r.Run(context.Background(), alwaysCorrect("oracle"), "dev")
	require.NoError(t, err)
	second, err := r.Run(context.Background(), alwaysCorrect("oracle"), "dev")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunUsesEvidenceSelector(t *testing.T) {
	queries := []dataset.Query{{
		ID: "q1", Split: "dev", GoldAnswer: "Platte County", HardCaseBucket: dataset.BucketBoundaryAdjacent,
		GoldEvidence: []dataset.Evidence{{ID: "gold", Text: "Platte County"}},
	}}
	var seen [][]dataset.Evidence
	answer := func(q dataset.Query, ev []dataset.Evidence) (Prediction, error) {
		seen = append(seen, ev)
		return Prediction{QueryID: q.ID}, nil
	}

	r := newTestRunner(t, queries)
	_, err := r.Run(context.Background(), &stubSystem{name: "default", answer: answer}, "dev")
	require.NoError(t, err)
	closed := &selectingSystem{stubSystem: stubSystem{name: "closed-book", answer: answer}}
	_, err = r.Run(context.Background(), closed, "dev")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "gold", seen[0][0].ID, "default evidence is the gold evidence")
	assert.Empty(t, seen[1], "selector may withhold evidence")
}

func TestRunComplianceCountersAreIndependent(t *testing.T) {
	queries := []dataset.Query{
		{ID: "q1", Split: "dev", GoldAnswer: "Jerusalem", HardCaseBucket: dataset.BucketConflictingSources,
			GoldEvidence: []dataset.Evidence{{ID: "e1"}, {ID: "e2"}}},
		{ID: "q2", Split: "dev", GoldAnswer: "Jerusalem", HardCaseBucket: dataset.BucketConflictingSources,
			GoldEvidence: []dataset.Evidence{{ID: "e1"}}},
		{ID: "q3", Split: "dev", GoldAnswer: "Jerusalem", HardCaseBucket: dataset.BucketConflictingSources},
	}
	preds := map[string]Prediction{
		"q1": {QueryID: "q1", RawAnswer: "wrong", FlaggedConflict: true, IncludedAsOfDate: true, EvidenceIDsUsed: []string{"e1", "e2"}},
		"q2": {QueryID: "q2", RawAnswer: "jerusalem", EvidenceIDsUsed: []string{"e1", "web-7"}},
		"q3": {QueryID: "q3", RawAnswer: "Jerusalem?", AskedClarification: true, Refused: true},
	}
	sys := &stubSystem{name: "mixed", answer: func(q dataset.Query, _ []dataset.Evidence) (Prediction, error) {
		return preds[q.ID], nil
	}}
	r := newTestRunner(t, queries)

	m, err := r.Run(context.Background(), sys, "dev")
	require.NoError(t, err)
	acc := m.Bucket(dataset.BucketConflictingSources)
	assert.Equal(t, BucketAccumulator{
		BucketName:         dataset.BucketConflictingSources,
		Total:              3,
		AnswerCorrect:      2,
		CitationSupported:  1,
		FreshnessCompliant: 1,
		ConflictHandled:    1,
		ClarificationAsked: 1,
	}, acc)
}

func TestRunObserverSequence(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestRunner(t, scenarioQueries(), WithObserver(obs), WithObserver(nil))

	m, err := r.Run(context.Background(), alwaysCorrect("oracle"), "dev")
	require.NoError(t, err)
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, []string{"q1", "q3", "q5"}, obs.queries)
	assert.Equal(t, []int{1, 2, 3}, obs.indexes)
	assert.Equal(t, 1, obs.finished)
	assert.Same(t, m, obs.last)
}

func TestSnapshotIsIndependentOfLaterRuns(t *testing.T) {
	r := newTestRunner(t, scenarioQueries())
	first, err := r.Run(context.Background(), alwaysCorrect("oracle"), "dev")
	require.NoError(t, err)
	before := first.Bucket(dataset.BucketStaleFact)

	_, err = r.Run(context.Background(), alwaysCorrect("oracle"), "dev")
	require.NoError(t, err)
	assert.Equal(t, before, first.Bucket(dataset.BucketStaleFact))
}

type recordingObserver struct {
	started  int
	finished int
	queries  []string
	indexes  []int
	last     *EvalMetrics
}

func (o *recordingObserver) RunStarted(string, string, int) { o.started++ }

func (o *recordingObserver) QueryEvaluated(_ string, index, _ int, q dataset.Query, _ Prediction, _ Outcome) {
	o.queries = append(o.queries, q.ID)
	o.indexes = append(o.indexes, index)
}

func (o *recordingObserver) RunFinished(m *EvalMetrics) {
	o.finished++
	o.last = m
}
