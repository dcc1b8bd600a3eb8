// Package server composes the wire codec, authenticator, request
// resolver, and relay into the per-connection state machine, and
// drives the listener's accept loop around it.
package server

import (
	"context"
	"net"
	"time"

	"github.com/ferrolane/socks5d/pkg/apperr"
	"github.com/ferrolane/socks5d/pkg/audit"
	"github.com/ferrolane/socks5d/pkg/credentials"
	"github.com/ferrolane/socks5d/pkg/logger"
	"github.com/ferrolane/socks5d/pkg/metrics"
	"github.com/ferrolane/socks5d/pkg/socks5"
	"github.com/ferrolane/socks5d/pkg/socks5/auth"
	"github.com/ferrolane/socks5d/pkg/socks5/relay"
	"github.com/ferrolane/socks5d/pkg/socks5/request"
	"github.com/google/uuid"
)

// Timeouts bounds each phase of a connection's lifetime. A zero value
// disables the corresponding deadline.
type Timeouts struct {
	Negotiation time.Duration
	Auth        time.Duration
	Dial        time.Duration
	RelayIdle   time.Duration
}

// Conn drives a single accepted TCP connection through greeting,
// method selection, optional auth, request resolution, and relay, in
// that strict order. Any failure at any phase closes the connection;
// state never survives past a single Conn's lifetime, so connections
// never share mutable protocol state with one another.
type Conn struct {
	store       credentials.Store
	requireAuth bool
	dialer      request.Dialer
	timeouts    Timeouts
	auditSink   *audit.Sink
}

// NewConn builds a Conn driver. store may be nil, in which case any
// USER_PASS attempt is always refused (auth.Negotiate treats a nil
// store as denying every credential).
func NewConn(store credentials.Store, requireAuth bool, dialer request.Dialer, timeouts Timeouts, auditSink *audit.Sink) *Conn {
	return &Conn{store: store, requireAuth: requireAuth, dialer: dialer, timeouts: timeouts, auditSink: auditSink}
}

// Serve runs the full connection lifecycle on client, closing it
// before returning in every case.
func (c *Conn) Serve(ctx context.Context, client net.Conn) {
	defer client.Close()

	connID := uuid.New()
	log := logger.Global().WithConnID(connID)
	remote := client.RemoteAddr().String()

	c.auditSink.Publish(audit.Event{Kind: "connect", RemoteAddr: remote})

	// Negotiate covers both the greeting/method-selection exchange and,
	// when USER_PASS is selected, the credential round-trip, so the
	// deadline for this call spans both configured budgets.
	if negDeadline := c.timeouts.Negotiation + c.timeouts.Auth; negDeadline > 0 {
		client.SetDeadline(time.Now().Add(negDeadline))
	}

	method, err := auth.Negotiate(ctx, client, c.store, c.requireAuth)
	if err != nil {
		appErr := apperr.FromError(err)
		result := "protocol_error"
		if appErr.Kind == apperr.KindCredential {
			result = "auth_failed"
		}
		metrics.ConnectionsTotal.WithLabelValues(result).Inc()
		metrics.AuthAttemptsTotal.WithLabelValues(method.String(), "failure").Inc()
		log.LogAuth(method.String(), remote, false)
		c.auditSink.Publish(audit.Event{Kind: "auth_fail", RemoteAddr: remote})
		return
	}
	if method == socks5.MethodUserPass {
		metrics.AuthAttemptsTotal.WithLabelValues(method.String(), "success").Inc()
		log.LogAuth(method.String(), remote, true)
		c.auditSink.Publish(audit.Event{Kind: "auth_ok", RemoteAddr: remote})
	}

	// The request frame itself is read under the same client deadline
	// the dial timeout governs, since both belong to the request phase.
	if c.timeouts.Dial > 0 {
		client.SetDeadline(time.Now().Add(c.timeouts.Dial))
	}

	dialStart := time.Now()
	dialCtx := ctx
	var cancel context.CancelFunc
	if c.timeouts.Dial > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, c.timeouts.Dial)
		defer cancel()
	}

	upstream, err := request.Resolve(dialCtx, client, c.dialer)
	metrics.DialDuration.Observe(time.Since(dialStart).Seconds())
	if err != nil {
		metrics.ConnectionsTotal.WithLabelValues("dial_failed").Inc()
		log.LogError("dial_failed", err, "remote_addr", remote)
		return
	}
	defer upstream.Close()

	client.SetDeadline(time.Time{})
	if c.timeouts.RelayIdle > 0 {
		client.SetDeadline(time.Now().Add(c.timeouts.RelayIdle))
		upstream.SetDeadline(time.Now().Add(c.timeouts.RelayIdle))
	}

	metrics.ActiveConnections.Inc()
	relayStart := time.Now()
	stats := relay.Run(client, upstream)
	relayDur := time.Since(relayStart)
	metrics.ActiveConnections.Dec()
	metrics.RelayDuration.Observe(relayDur.Seconds())
	metrics.BytesTransferred.WithLabelValues("client_to_upstream").Add(float64(stats.ClientToUpstream))
	metrics.BytesTransferred.WithLabelValues("upstream_to_client").Add(float64(stats.UpstreamToClient))
	metrics.ConnectionsTotal.WithLabelValues("relayed").Inc()

	log.LogConn("relay_closed", remote, upstream.RemoteAddr().String(), relayDur)
	c.auditSink.Publish(audit.Event{
		Kind:       "relay_closed",
		RemoteAddr: remote,
		Target:     upstream.RemoteAddr().String(),
		BytesIn:    stats.ClientToUpstream,
		BytesOut:   stats.UpstreamToClient,
		Duration:   relayDur.String(),
	})
}
