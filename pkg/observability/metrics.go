package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation surfaced by the index and
// quantizer training paths. It has no HTTP/gRPC concept of its own; callers
// embedding this library into a service scrape it the usual way.
type Metrics struct {
	// Training metrics
	TrainingsTotal    *prometheus.CounterVec
	TrainingDuration  *prometheus.HistogramVec
	TrainingFailures  *prometheus.CounterVec
	TrainingLoss      *prometheus.GaugeVec

	// Add/search metrics
	VectorsAdded   prometheus.Counter
	SearchesTotal  *prometheus.CounterVec
	SearchLatency  *prometheus.HistogramVec
	SearchResultSize prometheus.Histogram

	// Index shape metrics
	IndexNTotal    *prometheus.GaugeVec
	IVFListSize    *prometheus.HistogramVec

	// Top-k selector metrics
	TopKPushedTotal prometheus.Counter
	TopKEvictedTotal prometheus.Counter
}

// NewMetrics creates and registers the Prometheus collectors used by this
// module. Safe to call once per process; registering twice against the
// default registry panics, matching promauto's usual behavior.
func NewMetrics() *Metrics {
	return &Metrics{
		TrainingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annquant_trainings_total",
				Help: "Total number of Train() calls by index kind",
			},
			[]string{"kind"},
		),
		TrainingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annquant_training_duration_seconds",
				Help:    "Wall-clock duration of Train() by index kind",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"kind"},
		),
		TrainingFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annquant_training_failures_total",
				Help: "Total number of Train() calls that returned an error, by kind and error code",
			},
			[]string{"kind", "code"},
		),
		TrainingLoss: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "annquant_training_loss",
				Help: "Final reported training objective (mean squared reconstruction error) by index kind",
			},
			[]string{"kind"},
		),
		VectorsAdded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "annquant_vectors_added_total",
				Help: "Total number of vectors accepted by Add()/AddWithIDs()",
			},
		),
		SearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annquant_searches_total",
				Help: "Total number of Search() calls by index kind",
			},
			[]string{"kind"},
		),
		SearchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annquant_search_latency_seconds",
				Help:    "Search() latency by index kind",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"kind"},
		),
		SearchResultSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "annquant_search_result_size",
				Help:    "Number of non-sentinel results returned by Search()",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
			},
		),
		IndexNTotal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "annquant_index_ntotal",
				Help: "Current ntotal by index kind",
			},
			[]string{"kind"},
		),
		IVFListSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annquant_ivf_list_size",
				Help:    "Distribution of inverted-list sizes after Add(), used to spot skew",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
			},
			[]string{"ivf"},
		),
		TopKPushedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "annquant_topk_pushed_total",
				Help: "Total number of (key, value) pairs pushed into a top-k selector",
			},
		),
		TopKEvictedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "annquant_topk_evicted_total",
				Help: "Total number of candidates evicted from a full top-k selector",
			},
		),
	}
}

// RecordTraining records a completed Train() call.
func (m *Metrics) RecordTraining(kind string, duration time.Duration, err error) {
	m.TrainingsTotal.WithLabelValues(kind).Inc()
	m.TrainingDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		m.TrainingFailures.WithLabelValues(kind, errorCode(err)).Inc()
	}
}

// RecordTrainingLoss records the final training objective for a kind.
func (m *Metrics) RecordTrainingLoss(kind string, loss float64) {
	m.TrainingLoss.WithLabelValues(kind).Set(loss)
}

// RecordAdd records vectors accepted by an Add()/AddWithIDs() call.
func (m *Metrics) RecordAdd(kind string, n int, ntotal int) {
	m.VectorsAdded.Add(float64(n))
	m.IndexNTotal.WithLabelValues(kind).Set(float64(ntotal))
}

// RecordSearch records a completed Search() call.
func (m *Metrics) RecordSearch(kind string, duration time.Duration, resultSize int) {
	m.SearchesTotal.WithLabelValues(kind).Inc()
	m.SearchLatency.WithLabelValues(kind).Observe(duration.Seconds())
	m.SearchResultSize.Observe(float64(resultSize))
}

// RecordIVFListSizes records the current size of every inverted list, useful
// for spotting a skewed coarse quantizer.
func (m *Metrics) RecordIVFListSizes(ivfName string, sizes []int) {
	for _, s := range sizes {
		m.IVFListSize.WithLabelValues(ivfName).Observe(float64(s))
	}
}

// RecordTopKPush records a single push into a top-k selector, and whether it
// evicted an existing candidate.
func (m *Metrics) RecordTopKPush(evicted bool) {
	m.TopKPushedTotal.Inc()
	if evicted {
		m.TopKEvictedTotal.Inc()
	}
}

// errorCode extracts a stable error identifier for metric labels without
// importing internal/quant (which would create an import cycle with the
// index packages that depend on both). Callers that want a typed code
// should type-assert the error themselves; this is a best-effort label.
func errorCode(err error) string {
	type coder interface{ Code() string }
	if c, ok := err.(coder); ok {
		return c.Code()
	}
	return "unknown"
}
