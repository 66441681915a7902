// Package metrics provides Prometheus metrics for the adaptive difficulty engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Response ingestion
	responsesRecorded prometheus.Counter
	responsesInvalid  prometheus.Counter

	// Prediction serving, labeled by source: "ensemble" or "heuristic"
	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram

	// Training
	trainings        prometheus.Counter
	trainingFailures prometheus.Counter
	trainingDuration prometheus.Histogram

	// Model state
	modelVersion prometheus.Gauge
	modelTrained prometheus.Gauge
	modelBytes   prometheus.Gauge

	// Persistence quality
	decodeFailures prometheus.Counter

	// Store state
	trackedWindows prometheus.Gauge
	storedRecords  prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "geoquiz",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.responsesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_recorded_total",
		Help:      "Total number of response events accepted into the performance store",
	})

	m.responsesInvalid = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_invalid_total",
		Help:      "Total number of response events rejected by validation",
	})

	m.predictions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "predictions_total",
			Help:      "Total number of difficulty predictions served, by predictor source",
		},
		[]string{"source"},
	)

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_latency_milliseconds",
		Help:      "Histogram of difficulty prediction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.trainings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "trainings_total",
		Help:      "Total number of successful ensemble training passes",
	})

	m.trainingFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_failures_total",
		Help:      "Total number of training passes that failed or were abandoned",
	})

	m.trainingDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_duration_milliseconds",
		Help:      "Histogram of ensemble training duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.modelVersion = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_version",
		Help:      "Version counter of the currently installed ensemble",
	})

	m.modelTrained = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_trained",
		Help:      "Whether the installed ensemble is trained (1) or the heuristic serves (0)",
	})

	m.modelBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_file_bytes",
		Help:      "Size in bytes of the last encoded model artifact",
	})

	m.decodeFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_decode_failures_total",
		Help:      "Total number of model decode attempts rejected as corrupt",
	})

	m.trackedWindows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_windows",
		Help:      "Number of (student, topic) performance windows currently tracked",
	})

	m.storedRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stored_records",
		Help:      "Total number of response records held across all windows",
	})
}

// RecordResponseRecorded increments the accepted responses counter.
func RecordResponseRecorded() {
	globalManager.responsesRecorded.Inc()
}

// RecordResponseInvalid increments the rejected responses counter.
func RecordResponseInvalid() {
	globalManager.responsesInvalid.Inc()
}

// RecordPrediction increments the prediction counter for the given source.
func RecordPrediction(source string) {
	globalManager.predictions.WithLabelValues(source).Inc()
}

// RecordPredictionLatency records prediction latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordTraining increments the successful trainings counter.
func RecordTraining() {
	globalManager.trainings.Inc()
}

// RecordTrainingFailure increments the failed trainings counter.
func RecordTrainingFailure() {
	globalManager.trainingFailures.Inc()
}

// RecordTrainingDuration records a training pass duration in milliseconds.
func RecordTrainingDuration(durationMs float64) {
	globalManager.trainingDuration.Observe(durationMs)
}

// UpdateModelVersion sets the installed ensemble version gauge.
func UpdateModelVersion(version uint32) {
	globalManager.modelVersion.Set(float64(version))
}

// UpdateModelTrained sets the trained flag gauge.
func UpdateModelTrained(trained bool) {
	if trained {
		globalManager.modelTrained.Set(1)
	} else {
		globalManager.modelTrained.Set(0)
	}
}

// UpdateModelBytes sets the encoded model size gauge.
func UpdateModelBytes(size int) {
	globalManager.modelBytes.Set(float64(size))
}

// RecordDecodeFailure increments the corrupt model counter.
func RecordDecodeFailure() {
	globalManager.decodeFailures.Inc()
}

// UpdateTrackedWindows sets the tracked windows gauge.
func UpdateTrackedWindows(count int) {
	globalManager.trackedWindows.Set(float64(count))
}

// UpdateStoredRecords sets the stored records gauge.
func UpdateStoredRecords(count int) {
	globalManager.storedRecords.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
