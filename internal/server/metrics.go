package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/circuitbreaker"
)

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	quotaRemaining  prometheus.Gauge
	quotaUsed       prometheus.Gauge
	circuitBreaker  prometheus.Gauge
}

// registerMetrics sets up Prometheus metrics collection on a private registry
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_proxy_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "odds_proxy_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_proxy_cache_lookups_total",
				Help: "Response cache lookups by result",
			},
			[]string{"result"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odds_proxy_upstream_errors_total",
				Help: "Failed odds provider calls by kind",
			},
			[]string{"kind"},
		),
		quotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "odds_proxy_upstream_quota_remaining",
				Help: "Requests left in the odds provider quota",
			},
		),
		quotaUsed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "odds_proxy_upstream_quota_used",
				Help: "Requests used from the odds provider quota",
			},
		),
		circuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "odds_proxy_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.requestCounter,
		m.requestDuration,
		m.cacheLookups,
		m.upstreamErrors,
		m.quotaRemaining,
		m.quotaUsed,
		m.circuitBreaker,
	)

	return m
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *serverMetrics) observeCache(hit bool) {
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *serverMetrics) observeQuota(remaining, used int) {
	m.quotaRemaining.Set(float64(remaining))
	m.quotaUsed.Set(float64(used))
}

func (m *serverMetrics) observeBreaker(s circuitbreaker.State) {
	m.circuitBreaker.Set(float64(s))
}
