package server

import (
	"sync"
	"time"
)

// RateLimiter is a per-source-IP sliding-window admission gate, run
// before any SOCKS5 protocol bytes are read. It is deliberately
// outside the connection state machine: Allow never influences a
// greeting, method selection, or request decision, it only decides
// whether a new TCP connection is accepted at all. That keeps
// connections independent of one another once admitted, matching the
// no-shared-mutable-protocol-state design.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	max      int
	window   time.Duration
}

// NewRateLimiter returns a gate allowing at most max connections per
// source IP within window. A max of zero disables the gate entirely.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		max:      max,
		window:   window,
	}
}

// Allow reports whether a new connection from ip should be admitted,
// recording it against the window if so. A disabled gate (max <= 0)
// always allows.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.max <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	valid := rl.requests[ip][:0]
	for _, t := range rl.requests[ip] {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}
	rl.requests[ip] = valid

	if len(rl.requests[ip]) >= rl.max {
		return false
	}
	rl.requests[ip] = append(rl.requests[ip], now)
	return true
}
