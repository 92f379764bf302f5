// Package metrics provides Prometheus metrics for the season simulator.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the season simulator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Rating engine
	ratingRows      prometheus.Counter
	ratingUndefined prometheus.Counter
	playsFiltered   prometheus.Counter

	// Feature builder
	featureVectors prometheus.Counter
	featureMissing *prometheus.CounterVec

	// Simulation
	trialsSimulated    prometheus.Counter
	gamesDrawn         prometheus.Counter
	simulationDuration prometheus.Histogram
	simulationWorkers  prometheus.Gauge
	probabilityClamped prometheus.Counter

	// Pipeline
	stageDuration *prometheus.HistogramVec
	storeWrites   *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "seasonsim",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.ratingRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("rating_rows_total"),
		Help: "Team-week rating rows produced by the rolling rating engine",
	})
	m.ratingUndefined = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("rating_undefined_total"),
		Help: "Team-week rows whose net rating is undefined for lack of history",
	})
	m.playsFiltered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("plays_filtered_total"),
		Help: "Non-scrimmage plays dropped before aggregation",
	})

	m.featureVectors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("feature_vectors_total"),
		Help: "Per-game feature vectors produced",
	})
	m.featureMissing = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("feature_missing_total"),
		Help: "Undefined feature values by feature name",
	}, []string{"feature"})

	m.trialsSimulated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("trials_simulated_total"),
		Help: "Monte Carlo season trials completed",
	})
	m.gamesDrawn = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("games_drawn_total"),
		Help: "Bernoulli game outcomes drawn across all trials",
	})
	m.simulationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("simulation_duration_milliseconds"),
		Help:    "Wall time of one full simulation run",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
	m.simulationWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("simulation_workers"),
		Help: "Workers used by the most recent simulation run",
	})
	m.probabilityClamped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("probability_clamped_total"),
		Help: "Home-win probabilities clamped away from 0 or 1",
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("stage_duration_milliseconds"),
		Help:    "Pipeline stage duration by stage",
		Buckets: m.histogramBuckets,
	}, []string{"stage"})
	m.storeWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("store_rows_written_total"),
		Help: "Rows written to the result store by table",
	}, []string{"table"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: constLabels,
		Name: m.name("errors_by_component_total"),
		Help: "Total number of errors by component",
	}, []string{"component", "error_type"})
}

// RecordRatingRows adds rows produced by the rating engine.
func RecordRatingRows(rows, undefined int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.ratingRows.Add(float64(rows))
	globalManager.ratingUndefined.Add(float64(undefined))
}

// RecordPlaysFiltered adds non-scrimmage plays dropped by the rating engine.
func RecordPlaysFiltered(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.playsFiltered.Add(float64(n))
}

// RecordFeatureVectors adds vectors produced by the feature builder.
func RecordFeatureVectors(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.featureVectors.Add(float64(n))
}

// RecordFeatureMissing adds undefined values for one feature.
func RecordFeatureMissing(feature string, n int) {
	if !globalManager.enabled.Load() || n == 0 {
		return
	}
	globalManager.featureMissing.WithLabelValues(feature).Add(float64(n))
}

// RecordTrials adds completed trials and the games drawn within them.
func RecordTrials(trials, games int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.trialsSimulated.Add(float64(trials))
	globalManager.gamesDrawn.Add(float64(trials) * float64(games))
}

// RecordSimulationDuration observes one simulation run.
func RecordSimulationDuration(d time.Duration) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.simulationDuration.Observe(float64(d.Milliseconds()))
}

// UpdateSimulationWorkers sets the worker count of the latest run.
func UpdateSimulationWorkers(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.simulationWorkers.Set(float64(n))
}

// RecordProbabilityClamped adds probabilities clamped into range.
func RecordProbabilityClamped(n int) {
	if !globalManager.enabled.Load() || n == 0 {
		return
	}
	globalManager.probabilityClamped.Add(float64(n))
}

// RecordStageDuration observes one pipeline stage.
func RecordStageDuration(stage string, d time.Duration) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.stageDuration.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

// RecordStoreWrite adds rows written to a table.
func RecordStoreWrite(table string, rows int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.storeWrites.WithLabelValues(table).Add(float64(rows))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// SetEnabled turns recording by the package-level helpers on or off.
// Metrics already collected stay registered and exported.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// Enabled reports whether the package-level helpers record.
func Enabled() bool {
	return globalManager.enabled.Load()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
