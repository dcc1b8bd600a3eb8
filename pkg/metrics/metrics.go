// Package metrics exposes the proxy's Prometheus collectors and an
// optional HTTP endpoint to scrape them.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// ConnectionsTotal counts accepted connections by how they ended:
	// "relayed", "rejected" (admission gate), "protocol_error" (greeting
	// or method negotiation failed), "auth_failed", "dial_failed" (any
	// request-phase failure, including an unsupported command or
	// address type).
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socks5d_connections_total",
			Help: "Total number of accepted connections by outcome",
		},
		[]string{"result"},
	)

	// ActiveConnections is the number of connections currently in the
	// relay phase.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "socks5d_active_connections",
			Help: "Number of connections currently relaying",
		},
	)

	// AuthAttemptsTotal counts negotiation outcomes by method: each
	// successful USER_PASS sub-negotiation, and every failed negotiation
	// (greeting and method-selection failures included) under the method
	// Negotiate reported.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socks5d_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// BytesTransferred counts relayed bytes by direction.
	BytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socks5d_bytes_transferred_total",
			Help: "Total bytes relayed by direction",
		},
		[]string{"direction"},
	)

	// DialDuration observes how long dialing the upstream target took.
	DialDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "socks5d_dial_duration_seconds",
			Help:    "Upstream dial latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RelayDuration observes the lifetime of a connection's relay phase.
	RelayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "socks5d_relay_duration_seconds",
			Help:    "Relay phase duration in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 3600},
		},
	)

	// RateLimitRejectionsTotal counts connections denied by the
	// admission gate, by source IP bucket being omitted (cardinality).
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "socks5d_rate_limit_rejections_total",
			Help: "Total number of connections rejected by the admission gate",
		},
	)

	// AuditDroppedTotal counts audit events dropped because the sink's
	// buffer was full or Redis was unreachable.
	AuditDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "socks5d_audit_dropped_total",
			Help: "Total number of audit events dropped",
		},
	)
)

// PrometheusHandler returns a Fiber handler serving the default
// Prometheus registry, bridged onto fasthttp the same way the rest of
// the HTTP surface is.
func PrometheusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		handler(c.Context())
		return nil
	}
}
