package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cardValidations    *prometheus.CounterVec
	statusTransitions  *prometheus.CounterVec
	paymentsTotal      *prometheus.CounterVec
	keymenRegistered   prometheus.Counter
	circuitStateChange *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		cardValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_card_validations_total",
				Help: "Card form field validations by field and outcome kind.",
			},
			[]string{"field", "result"},
		),
		statusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_activity_status_transitions_total",
				Help: "Activity status changes by target status and outcome.",
			},
			[]string{"to", "outcome"},
		),
		paymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_payments_total",
				Help: "Payments by method and status.",
			},
			[]string{"method", "status"},
		),
		keymenRegistered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bfa_keymen_registered_total",
				Help: "Total keymen registered.",
			},
		),
		circuitStateChange: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_circuit_breaker_transitions_total",
				Help: "Circuit breaker state changes.",
			},
			[]string{"name", "to"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCardValidation counts one field check. result is "ok" or the error kind.
func (m *Metrics) IncrCardValidation(field, result string) {
	m.cardValidations.WithLabelValues(field, result).Inc()
}

// IncrStatusTransition counts an activity status change attempt.
func (m *Metrics) IncrStatusTransition(to, outcome string) {
	m.statusTransitions.WithLabelValues(to, outcome).Inc()
}

// IncrPayment counts a payment reaching a status.
func (m *Metrics) IncrPayment(method, status string) {
	m.paymentsTotal.WithLabelValues(method, status).Inc()
}

// IncrKeyman counts a registered keyman.
func (m *Metrics) IncrKeyman() {
	m.keymenRegistered.Inc()
}

// IncrCircuitTransition counts a circuit breaker state change.
func (m *Metrics) IncrCircuitTransition(name, to string) {
	m.circuitStateChange.WithLabelValues(name, to).Inc()
}

// CacheHitRate returns hits/(hits+misses) for a cache, 0 when unused.
func (m *Metrics) CacheHitRate(cache string) float64 {
	hits := getCounterValue(m.cacheHits, cache)
	misses := getCounterValue(m.cacheMisses, cache)
	if hits+misses == 0 {
		return 0
	}
	return hits / (hits + misses)
}

// PaymentCount returns the cumulative count for a method/status pair.
func (m *Metrics) PaymentCount(method, status string) float64 {
	return getCounterValue(m.paymentsTotal, method, status)
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
