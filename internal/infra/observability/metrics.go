package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

// Metrics holds all Prometheus metrics of the finance API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	reminders       *prometheus.CounterVec
	chatRequests    *prometheus.CounterVec
	ledgerRollbacks prometheus.Counter
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
				Name:    "finanzas_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finanzas_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finanzas_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finanzas_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		reminders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finanzas_reminders_total",
				Help: "Reminder emails by outcome (upcoming, overdue, skipped).",
			},
			[]string{"kind"},
		),
		chatRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finanzas_chat_requests_total",
				Help: "Chat requests by outcome (primary, fallback, error).",
			},
			[]string{"outcome"},
		),
		ledgerRollbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finanzas_ledger_rollbacks_total",
				Help: "Optimistic ledger writes rolled back after a failed remote write.",
			},
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

// AddReminders adds n to the reminder counter of kind.
func (m *Metrics) AddReminders(kind string, n int) {
	m.reminders.WithLabelValues(kind).Add(float64(n))
}

// IncrChat increments the chat counter with an outcome label.
func (m *Metrics) IncrChat(outcome string) {
	m.chatRequests.WithLabelValues(outcome).Inc()
}

// IncrLedgerRollback counts a rolled back ledger write.
func (m *Metrics) IncrLedgerRollback() {
	m.ledgerRollbacks.Inc()
}

// Snapshot returns cumulative counters suitable for the
// GET /v1/metrics/summary endpoint.
func (m *Metrics) Snapshot() *domain.OpsMetrics {
	primary := getCounterValue(m.chatRequests, "primary")
	fallback := getCounterValue(m.chatRequests, "fallback")
	failed := getCounterValue(m.chatRequests, "error")
	hits := getCounterValue(m.cacheHits, "ledger")
	misses := getCounterValue(m.cacheMisses, "ledger")

	chatTotal := primary + fallback + failed
	fallbackRate := float64(0)
	cacheHitRate := float64(0)
	if chatTotal > 0 {
		fallbackRate = fallback / chatTotal
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.OpsMetrics{
		RemindersUpcoming: getCounterValue(m.reminders, "upcoming"),
		RemindersOverdue:  getCounterValue(m.reminders, "overdue"),
		RemindersSkipped:  getCounterValue(m.reminders, "skipped"),
		ChatRequests:      chatTotal,
		ChatFallbackRate:  fallbackRate,
		CacheHitRate:      cacheHitRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
