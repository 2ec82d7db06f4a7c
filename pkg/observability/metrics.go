package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups every metric this module exports under one
// prometheus.Registerer, mirroring a per-concern registry struct rather
// than scattering package-level metric globals.
type Registry struct {
	registry prometheus.Registerer

	ExtractionsTotal    *prometheus.CounterVec
	ExtractionDuration  *prometheus.HistogramVec
	ExtractedNodesTotal *prometheus.GaugeVec

	ComparisonsTotal    prometheus.Counter
	ComparisonDuration  prometheus.Histogram
	DifferencesFound    prometheus.Counter

	RetryAttemptsTotal *prometheus.CounterVec
	DegradationSuccessRate *prometheus.GaugeVec

	ValidationErrorsTotal *prometheus.CounterVec
}

// NewRegistry builds a Registry backed by reg. Pass
// prometheus.NewRegistry() for an isolated test registry, or
// prometheus.DefaultRegisterer to expose metrics on the default
// /metrics handler.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{registry: reg}
	r.initExtractionMetrics()
	r.initComparisonMetrics()
	r.initResilienceMetrics()
	return r
}

func (r *Registry) initExtractionMetrics() {
	r.ExtractionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tr181_extractions_total",
			Help: "Total number of extraction attempts by source type and outcome.",
		},
		[]string{"source_type", "outcome"},
	)

	r.ExtractionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tr181_extraction_duration_seconds",
			Help:    "Duration of extraction operations in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source_type"},
	)

	r.ExtractedNodesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tr181_extracted_nodes_total",
			Help: "Number of nodes returned by the most recent extraction per source type.",
		},
		[]string{"source_type"},
	)
}

func (r *Registry) initComparisonMetrics() {
	r.ComparisonsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tr181_comparisons_total",
			Help: "Total number of comparisons run.",
		},
	)

	r.ComparisonDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tr181_comparison_duration_seconds",
			Help:    "Duration of comparison operations in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	r.DifferencesFound = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tr181_differences_found_total",
			Help: "Total number of differences reported across all comparisons.",
		},
	)
}

// RecordExtraction records the outcome and duration of an extraction
// attempt against a given source type.
func (r *Registry) RecordExtraction(sourceType, outcome string, duration float64, nodeCount int) {
	r.ExtractionsTotal.WithLabelValues(sourceType, outcome).Inc()
	r.ExtractionDuration.WithLabelValues(sourceType).Observe(duration)
	r.ExtractedNodesTotal.WithLabelValues(sourceType).Set(float64(nodeCount))
}

// RecordComparison records one comparison run's duration and the number
// of differences it found.
func (r *Registry) RecordComparison(duration float64, differencesCount int) {
	r.ComparisonsTotal.Inc()
	r.ComparisonDuration.Observe(duration)
	r.DifferencesFound.Add(float64(differencesCount))
}

// RecordRetryAttempt records one retry.Do attempt for the named
// operation.
func (r *Registry) RecordRetryAttempt(operation, outcome string) {
	r.RetryAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordDegradationRun records the success rate of the most recent
// bounded-parallel batch run for the named operation.
func (r *Registry) RecordDegradationRun(operation string, successRate float64) {
	r.DegradationSuccessRate.WithLabelValues(operation).Set(successRate)
}

func (r *Registry) initResilienceMetrics() {
	r.RetryAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tr181_retry_attempts_total",
			Help: "Total number of retry attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	r.DegradationSuccessRate = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tr181_degradation_success_rate",
			Help: "Success rate of the most recent bounded-parallel batch run per operation.",
		},
		[]string{"operation"},
	)

	r.ValidationErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tr181_validation_errors_total",
			Help: "Total number of validation errors by kind.",
		},
		[]string{"kind"},
	)
}
