package baselines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/groundedgeo/internal/appconfig"
	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

func staleQuery() dataset.Query {
	return dataset.Query{
		ID:             "q-stale",
		Split:          "dev",
		Question:       "What is the population of Springfield?",
		GoldAnswer:     "167,882",
		HardCaseBucket: dataset.BucketStaleFact,
		GoldEvidence: []dataset.Evidence{
			{ID: "e1", Source: "wiki", Text: "Springfield has 160,000 people."},
			{ID: "e2", Source: "census", Text: "Springfield population 167,882", Official: true, AsOf: "2020-04-01"},
		},
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"evidence", "llm", "oracle", "refuse"}, Names())
	for _, name := range Names() {
		assert.NotEmpty(t, Describe(name))
	}

	sys, err := New(" Oracle ", appconfig.Config{})
	require.NoError(t, err)
	assert.Equal(t, OracleName, sys.Name())

	_, err = New("gpt-5", appconfig.Config{})
	assert.ErrorContains(t, err, "unknown system")
}

func TestNewAll(t *testing.T) {
	systems, err := NewAll(appconfig.Config{Systems: []string{"refuse", "evidence"}})
	require.NoError(t, err)
	require.Len(t, systems, 2)
	assert.Equal(t, RefuseName, systems[0].Name())
	assert.Equal(t, EvidenceName, systems[1].Name())

	t.Setenv("OPENAI_API_KEY", "")
	_, err = NewAll(appconfig.Config{Systems: []string{"llm"}})
	assert.ErrorContains(t, err, "no API key")
}

func TestOracleScoresPerfectly(t *testing.T) {
	queries := []dataset.Query{staleQuery(), {
		ID: "q-amb", Split: "dev", GoldAnswer: "Portland, Maine", HardCaseBucket: dataset.BucketAmbiguousName,
		GoldEvidence: []dataset.Evidence{{ID: "e3", Source: "gazetteer", Text: "Portland, Maine"}},
	}}
	r, err := harness.NewRunner(queries)
	require.NoError(t, err)

	m, err := r.Run(context.Background(), NewOracle(), "dev")
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.OverallAccuracy)

	stale := m.Bucket(dataset.BucketStaleFact)
	assert.Equal(t, 1, stale.CitationSupported)
	assert.Equal(t, 1, stale.FreshnessCompliant)
	assert.Equal(t, 1, m.Bucket(dataset.BucketAmbiguousName).ClarificationAsked)
}

func TestRefuseWithholdsEvidence(t *testing.T) {
	r := NewRefuse()
	assert.Nil(t, r.EvidenceFor(staleQuery()))

	p, err := r.Generate(context.Background(), staleQuery(), nil)
	require.NoError(t, err)
	assert.True(t, p.Refused)
	assert.Equal(t, "q-stale", p.QueryID)
	assert.Empty(t, p.EvidenceIDsUsed)
}

func TestEvidencePrefersOfficialSource(t *testing.T) {
	q := staleQuery()
	p, err := NewEvidence().Generate(context.Background(), q, q.GoldEvidence)
	require.NoError(t, err)

	assert.Equal(t, "Springfield population 167,882 (as of 2020-04-01)", p.RawAnswer)
	assert.Equal(t, []string{"e2"}, p.EvidenceIDsUsed)
	assert.True(t, p.IncludedAsOfDate)
	assert.True(t, p.PreferredOfficialSource)
	assert.True(t, p.FlaggedConflict)
	assert.True(t, harness.LexicalOverlap.IsCorrect(p, q))
}

func TestEvidenceAgreeingSources(t *testing.T) {
	ev := []dataset.Evidence{
		{ID: "a", Source: "atlas", Text: "Lake Tahoe"},
		{ID: "b", Source: "Atlas ", Text: "something else"},
		{ID: "c", Source: "gazetteer", Text: "lake  tahoe"},
	}
	p, err := NewEvidence().Generate(context.Background(), dataset.Query{ID: "q"}, ev)
	require.NoError(t, err)
	assert.False(t, p.FlaggedConflict)
	assert.Equal(t, []string{"a"}, p.EvidenceIDsUsed)
	assert.False(t, p.IncludedAsOfDate)
}

func TestEvidenceWithoutEvidenceAsksForClarification(t *testing.T) {
	p, err := NewEvidence().Generate(context.Background(), dataset.Query{ID: "q"}, nil)
	require.NoError(t, err)
	assert.True(t, p.AskedClarification)
	assert.Empty(t, p.EvidenceIDsUsed)
}
