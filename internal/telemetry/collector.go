package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

const namespace = "groundedgeo"

// Outcome label values for the queries counter.
const (
	OutcomeCorrect     = "correct"
	OutcomeIncorrect   = "incorrect"
	OutcomeSystemError = "system_error"
)

// Collector keeps prometheus metrics for evaluation runs in its own registry.
type Collector struct {
	registry        *prometheus.Registry
	queries         *prometheus.CounterVec
	bucketAccuracy  *prometheus.GaugeVec
	overallAccuracy *prometheus.GaugeVec
}

var _ harness.Observer = (*Collector)(nil)

// NewCollector registers the run metrics on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries evaluated, by system, split, bucket and outcome.",
			},
			[]string{"system", "split", "bucket", "outcome"},
		),
		bucketAccuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bucket_accuracy",
				Help:      "Answer accuracy of the last finished run per bucket.",
			},
			[]string{"system", "split", "bucket"},
		),
		overallAccuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "overall_accuracy",
				Help:      "Overall answer accuracy of the last finished run.",
			},
			[]string{"system", "split"},
		),
	}
	c.registry.MustRegister(c.queries, c.bucketAccuracy, c.overallAccuracy)
	return c
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RunStarted(string, string, int) {}

func (c *Collector) QueryEvaluated(system string, _, _ int, q dataset.Query, _ harness.Prediction, o harness.Outcome) {
	outcome := OutcomeIncorrect
	switch {
	case o.SystemError != nil:
		outcome = OutcomeSystemError
	case o.Correct:
		outcome = OutcomeCorrect
	}
	c.queries.WithLabelValues(system, q.Split, string(q.HardCaseBucket), outcome).Inc()
}

func (c *Collector) RunFinished(m *harness.EvalMetrics) {
	for _, b := range dataset.KnownBuckets() {
		c.bucketAccuracy.WithLabelValues(m.SystemName, m.Split, string(b)).Set(m.Bucket(b).Accuracy())
	}
	c.overallAccuracy.WithLabelValues(m.SystemName, m.Split).Set(m.OverallAccuracy)
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
