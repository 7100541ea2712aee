package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

func sampleMetrics() *harness.EvalMetrics {
	buckets := make(map[dataset.Bucket]harness.BucketAccumulator)
	for _, b := range dataset.KnownBuckets() {
		buckets[b] = harness.BucketAccumulator{BucketName: b}
	}
	buckets[dataset.BucketStaleFact] = harness.BucketAccumulator{
		BucketName: dataset.BucketStaleFact, Total: 3, AnswerCorrect: 2,
		CitationSupported: 1, FreshnessCompliant: 3, ConflictHandled: 0, ClarificationAsked: 1,
	}
	buckets[dataset.BucketAmbiguousName] = harness.BucketAccumulator{
		BucketName: dataset.BucketAmbiguousName, Total: 4, AnswerCorrect: 2, SystemErrors: 1,
	}
	return &harness.EvalMetrics{
		RunID:           "3f1c",
		SystemName:      "evidence",
		Split:           "dev",
		Timestamp:       time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC),
		TotalQueries:    7,
		OverallAccuracy: 4.0 / 7.0,
		Buckets:         buckets,
	}
}

func TestToSerializableRoundsOverallAccuracy(t *testing.T) {
	rec := ToSerializable(sampleMetrics())
	assert.Equal(t, 0.571, rec.OverallAccuracy)
	assert.Equal(t, "evidence", rec.SystemName)
	assert.Equal(t, "2025-06-01T12:30:00.123456789Z", rec.Timestamp)
	assert.Len(t, rec.ByBucket, len(dataset.KnownBuckets()))
	assert.Equal(t, 3, rec.ByBucket["stale_fact"].FreshnessCompliant)
}

func TestRoundAccuracy(t *testing.T) {
	assert.Equal(t, 0.667, RoundAccuracy(2.0/3.0))
	assert.Equal(t, 1.0, RoundAccuracy(1.0))
	assert.Equal(t, 0.0, RoundAccuracy(0.0))
	assert.Equal(t, 0.125, RoundAccuracy(0.1254))
}

func TestRoundTrip(t *testing.T) {
	orig := sampleMetrics()
	data, err := Marshal(orig)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, orig.RunID, got.RunID)
	assert.Equal(t, orig.SystemName, got.SystemName)
	assert.Equal(t, orig.Split, got.Split)
	assert.True(t, orig.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, orig.TotalQueries, got.TotalQueries)
	assert.InDelta(t, orig.OverallAccuracy, got.OverallAccuracy, 0.0005)
	assert.Equal(t, orig.Buckets, got.Buckets)
}

func TestSerializedShape(t *testing.T) {
	data, err := Marshal(sampleMetrics())
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	for _, key := range []string{"system_name", "timestamp", "total_queries", "overall_accuracy", "by_bucket"} {
		assert.Contains(t, generic, key)
	}
	byBucket := generic["by_bucket"].(map[string]any)
	stale := byBucket["stale_fact"].(map[string]any)
	for _, key := range []string{"bucket_name", "total", "answer_correct", "citation_supported",
		"freshness_compliant", "conflict_handled", "clarification_asked"} {
		assert.Contains(t, stale, key)
	}
}

func TestFromRecordRejectsUnknownBucket(t *testing.T) {
	rec := ToSerializable(sampleMetrics())
	rec.ByBucket["enclave"] = BucketRecord{BucketName: "enclave", Total: 1}
	_, err := FromRecord(rec)
	assert.ErrorIs(t, err, dataset.ErrUnknownBucket)
}

func TestFromRecordRejectsImpossibleCounts(t *testing.T) {
	rec := ToSerializable(sampleMetrics())
	rec.ByBucket["stale_fact"] = BucketRecord{BucketName: "stale_fact", Total: 1, AnswerCorrect: 2}
	_, err := FromRecord(rec)
	assert.ErrorContains(t, err, "exceed total")
}

func TestFromRecordFillsMissingBuckets(t *testing.T) {
	rec := Record{SystemName: "old", Timestamp: "2024-01-01T00:00:00Z", ByBucket: map[string]BucketRecord{
		"stale_fact": {BucketName: "stale_fact", Total: 1, AnswerCorrect: 1},
	}}
	m, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Len(t, m.Buckets, len(dataset.KnownBuckets()))
	assert.Equal(t, 0, m.Bucket(dataset.BucketAmbiguousName).Total)
}

func TestFromRecordBadTimestamp(t *testing.T) {
	_, err := FromRecord(Record{Timestamp: "yesterday"})
	assert.ErrorContains(t, err, "parse timestamp")
}

func TestWriteAndReadFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	m := sampleMetrics()
	m.SystemName = "LLM: gpt-4o mini"

	path, err := WriteFile(dir, m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "llm_-gpt-4o-mini_dev.json"), path)

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.Buckets, got.Buckets)
}

func TestAppendAndReadHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	first := sampleMetrics()
	second := sampleMetrics()
	second.SystemName = "oracle"
	second.OverallAccuracy = 1

	require.NoError(t, AppendHistory(path, first))
	require.NoError(t, AppendHistory(path, second))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "\n"))

	records, err := ReadHistory(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "evidence", records[0].SystemName)
	assert.Equal(t, "oracle", records[1].SystemName)
	assert.Equal(t, 1.0, records[1].OverallAccuracy)
}

func TestReadHistoryBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"system_name\":\"a\"}\n\nnot json\n"), 0o644))
	_, err := ReadHistory(path)
	assert.ErrorContains(t, err, "history line 3")
}

func TestRenderListsBucketsAndSystems(t *testing.T) {
	a := sampleMetrics()
	b := sampleMetrics()
	b.SystemName = "refuse"
	b.OverallAccuracy = 0

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, a, b))
	out := buf.String()
	for _, want := range []string{"evidence [dev]", "refuse [dev]", "stale_fact", "overall", "66.7% (2/3)", "57.1% (4/7)"} {
		assert.Contains(t, out, want)
	}
	for _, bucket := range dataset.KnownBuckets() {
		assert.Contains(t, out, string(bucket))
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf))
	assert.Contains(t, buf.String(), "No metrics")
}

func TestRenderCompliance(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCompliance(&buf, sampleMetrics()))
	out := buf.String()
	assert.Contains(t, out, "Compliance counters: evidence [dev]")
	assert.Contains(t, out, "clarify")
	assert.Contains(t, out, "ambiguous_name")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "llama3_8b", slugify("llama3:8b"))
	assert.Equal(t, "gold-evidence", slugify("  Gold Evidence  "))
	assert.Equal(t, "unnamed", slugify("***"))
}

func TestRenderCounts(t *testing.T) {
	d := &dataset.Dataset{Queries: []dataset.Query{
		{ID: "a", Split: "dev", HardCaseBucket: dataset.BucketStaleFact},
		{ID: "b", Split: "dev", HardCaseBucket: dataset.BucketStaleFact},
		{ID: "c", Split: "test", HardCaseBucket: dataset.BucketAmbiguousName},
	}}
	var buf bytes.Buffer
	require.NoError(t, RenderCounts(&buf, d))
	out := buf.String()
	assert.Contains(t, out, "Queries per split and bucket")
	assert.Contains(t, out, "dev")
	assert.Contains(t, out, "test")
	assert.Contains(t, out, "conflicting_sources")

	buf.Reset()
	require.NoError(t, RenderCounts(&buf, &dataset.Dataset{}))
	assert.Contains(t, buf.String(), "no queries")
}

func TestReadSnapshots(t *testing.T) {
	dir := t.TempDir()
	history := filepath.Join(dir, "history.jsonl")
	require.NoError(t, AppendHistory(history, sampleMetrics()))
	require.NoError(t, AppendHistory(history, sampleMetrics()))

	got, err := ReadSnapshots(history)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	path, err := WriteFile(dir, sampleMetrics())
	require.NoError(t, err)
	got, err = ReadSnapshots(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evidence", got[0].SystemName)

	_, err = ReadSnapshots(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
