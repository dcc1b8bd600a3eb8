// Package audit provides a best-effort, fire-and-forget sink for
// connection-lifecycle events, pushed to Redis when configured. It is
// strictly write-only from the proxy's point of view: nothing in the
// connection driver ever reads audit state back, so it cannot become
// the kind of shared protocol state the driver must avoid.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ferrolane/socks5d/pkg/logger"
	"github.com/ferrolane/socks5d/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// Event is a single connection-lifecycle record.
type Event struct {
	Kind       string    `json:"kind"` // connect, auth_ok, auth_fail, relay_closed
	RemoteAddr string    `json:"remote_addr"`
	Target     string    `json:"target,omitempty"`
	BytesIn    int64     `json:"bytes_in,omitempty"`
	BytesOut   int64     `json:"bytes_out,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	At         time.Time `json:"at"`
}

// Sink publishes Events to a Redis list. A nil Sink (no --redis-addr
// configured) is valid and Publish becomes a no-op.
type Sink struct {
	client *redis.Client
	key    string
	events chan Event
	done   chan struct{}
}

// NewSink connects to addr and starts the background publisher. If
// addr is empty, NewSink returns nil; Publish and Close on a nil Sink
// are no-ops, so callers can use the result without a nil check.
func NewSink(addr, listKey string) *Sink {
	if addr == "" {
		return nil
	}
	s := &Sink{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    listKey,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Publish enqueues ev for delivery. If the internal buffer is full the
// event is dropped rather than blocking the connection driver — audit
// delivery must never add latency to the proxy's hot path.
func (s *Sink) Publish(ev Event) {
	if s == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	ev.At = ev.At.UTC()
	select {
	case s.events <- ev:
	default:
		metrics.AuditDroppedTotal.Inc()
		logger.Global().Warn("audit_event_dropped", "kind", ev.Kind)
	}
}

// Close stops the background publisher and closes the Redis client.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	close(s.done)
	return s.client.Close()
}

func (s *Sink) run() {
	ctx := context.Background()
	for {
		select {
		case ev := <-s.events:
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := s.client.RPush(ctx, s.key, body).Err(); err != nil {
				metrics.AuditDroppedTotal.Inc()
				logger.Global().Warn("audit_publish_failed", "error", err.Error())
			}
		case <-s.done:
			return
		}
	}
}
