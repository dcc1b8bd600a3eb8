package server

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/ferrolane/socks5d/pkg/logger"
	"github.com/ferrolane/socks5d/pkg/metrics"
)

// Listener binds a TCP socket and spawns a Conn driver per accepted
// connection, applying the admission gate before any protocol bytes
// are read.
type Listener struct {
	conn      *Conn
	rateLimit *RateLimiter
}

// NewListener builds a Listener. rateLimit may be nil to disable
// admission control entirely.
func NewListener(conn *Conn, rateLimit *RateLimiter) *Listener {
	return &Listener{conn: conn, rateLimit: rateLimit}
}

// Serve binds addr and accepts connections until ctx is canceled or a
// fatal bind error occurs. Transient per-connection accept errors are
// logged and the loop continues; only a closed listener ends Serve.
func (l *Listener) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Global().Info("listening", "addr", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Global().Warn("accept_timeout", "error", err.Error())
				continue
			}
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			logger.Global().Warn("accept_error", "error", err.Error())
			continue
		}

		host, _, splitErr := net.SplitHostPort(conn.RemoteAddr().String())
		if splitErr != nil {
			host = conn.RemoteAddr().String()
		}
		if l.rateLimit != nil && !l.rateLimit.Allow(host) {
			metrics.ConnectionsTotal.WithLabelValues("rejected").Inc()
			metrics.RateLimitRejectionsTotal.Inc()
			conn.Close()
			continue
		}

		go l.conn.Serve(ctx, conn)
	}
}
