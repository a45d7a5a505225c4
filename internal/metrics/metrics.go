package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the service
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	WebhookEvents    *prometheus.CounterVec
	SettlementsTotal *prometheus.CounterVec
}

// New creates and registers the service metrics
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outfitter_http_requests_total",
			Help: "Total HTTP requests processed, by method, path and status",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outfitter_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outfitter_signature_webhook_events_total",
			Help: "Signature provider webhook events received, by provider status and outcome",
		}, []string{"provider_status", "outcome"}),
		SettlementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outfitter_settlements_total",
			Help: "Settlement trigger invocations, by outcome (created, duplicate, error)",
		}, []string{"outcome"}),
	}

	registry.MustRegister(m.RequestsTotal, m.RequestDuration, m.WebhookEvents, m.SettlementsTotal)
	return m
}

// Middleware records request counts and latencies
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// FullPath keeps cardinality bounded (route pattern, not raw URL)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.RequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordWebhookEvent increments the webhook event counter
func (m *Metrics) RecordWebhookEvent(providerStatus, outcome string) {
	m.WebhookEvents.WithLabelValues(providerStatus, outcome).Inc()
}

// RecordSettlement increments the settlement counter
func (m *Metrics) RecordSettlement(outcome string) {
	m.SettlementsTotal.WithLabelValues(outcome).Inc()
}
