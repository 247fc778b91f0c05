package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and the background
// loops.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	smsSentTotal         *prometheus.CounterVec
	smsFailedTotal       *prometheus.CounterVec
	smsSendDuration      *prometheus.HistogramVec
	smsQueuedTotal       *prometheus.CounterVec
	drainClaimedTotal    prometheus.Counter
	policyRejectedTotal  *prometheus.CounterVec
	receiptResolvedTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smsgw",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "smsgw",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		smsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smsgw",
				Name:      "sms_sent_total",
				Help:      "Total number of messages sent successfully.",
			},
			[]string{"gateway"},
		),
		smsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smsgw",
				Name:      "sms_failed_total",
				Help:      "Total number of send attempts that failed.",
			},
			[]string{"gateway", "reason"},
		),
		smsSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "smsgw",
				Name:      "sms_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by gateway.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"gateway"},
		),
		smsQueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smsgw",
				Name:      "sms_queued_total",
				Help:      "Total number of messages persisted for deferred sending.",
			},
			[]string{"gateway"},
		),
		drainClaimedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "smsgw",
				Name:      "drain_claimed_total",
				Help:      "Total number of queue entries claimed by drain ticks.",
			},
		),
		policyRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smsgw",
				Name:      "policy_rejected_total",
				Help:      "Total number of queue entries rejected before transport by gateway policy.",
			},
			[]string{"gateway"},
		),
		receiptResolvedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smsgw",
				Name:      "receipt_resolved_total",
				Help:      "Total number of delivery receipts stored by the poller.",
			},
			[]string{"gateway"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.smsSentTotal,
		m.smsFailedTotal,
		m.smsSendDuration,
		m.smsQueuedTotal,
		m.drainClaimedTotal,
		m.policyRejectedTotal,
		m.receiptResolvedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncSendSucceeded(gateway string) {
	if m == nil {
		return
	}
	m.smsSentTotal.WithLabelValues(normalizeGateway(gateway)).Inc()
}

func (m *Metrics) IncSendFailed(gateway string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.smsFailedTotal.WithLabelValues(normalizeGateway(gateway), reasonLabel).Inc()
}

func (m *Metrics) ObserveSendDuration(gateway string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.smsSendDuration.WithLabelValues(normalizeGateway(gateway)).Observe(seconds)
}

func (m *Metrics) IncQueued(gateway string) {
	if m == nil {
		return
	}
	m.smsQueuedTotal.WithLabelValues(normalizeGateway(gateway)).Inc()
}

func (m *Metrics) AddDrainClaimed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.drainClaimedTotal.Add(float64(count))
}

func (m *Metrics) IncPolicyRejected(gateway string) {
	if m == nil {
		return
	}
	m.policyRejectedTotal.WithLabelValues(normalizeGateway(gateway)).Inc()
}

func (m *Metrics) IncReceiptResolved(gateway string) {
	if m == nil {
		return
	}
	m.receiptResolvedTotal.WithLabelValues(normalizeGateway(gateway)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeGateway(gateway string) string {
	normalized := strings.ToLower(strings.TrimSpace(gateway))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
