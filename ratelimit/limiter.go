// Package ratelimit guards scheduler-driven auto-renewal against
// renewal storms: a sliding window over the last WindowSize renewal
// attempts trips when they're packed too tightly in time. Grounded in
// shape on security.MemoryRateLimiter's filterValidRequests sliding
// window, generalized from a per-client-IP hourly window to a single
// global 10-event/30-second window — this module has one renewal
// stream to protect, not one per caller, so the per-client map
// collapses to a single slice of timestamps.
package ratelimit

import (
	"sync"
	"time"

	"github.com/okta-compat/token-manager/clock"
	"github.com/okta-compat/token-manager/eventbus"
	"github.com/okta-compat/token-manager/tmerrors"
)

// WindowSize and WindowSpan are the policy constants: renewal is
// suppressed once 10 attempts have landed within a 30-second span.
const (
	WindowSize = 10
	WindowSpan = 30 * time.Second
)

// Limiter is a sliding-window guard over the timestamps of recent
// expired-driven renewal attempts.
type Limiter struct {
	bus   eventbus.Bus
	clock clock.Clock

	mu    sync.Mutex
	times []time.Time
}

// New returns a Limiter that emits an error event via bus whenever it
// trips.
func New(bus eventbus.Bus, clk clock.Clock) *Limiter {
	return &Limiter{bus: bus, clock: clk}
}

// Allow records the current attempt and reports whether it may proceed.
// When it returns false, it has already emitted an error event carrying
// tmerrors.ErrTooManyRenewRequests; the caller must suppress the
// renewal call for this attempt but keep scheduling future ones.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.times = append(l.times, now)
	if len(l.times) > WindowSize {
		l.times = l.times[len(l.times)-WindowSize:]
	}

	if len(l.times) == WindowSize && l.times[len(l.times)-1].Sub(l.times[0]) < WindowSpan {
		l.bus.Emit(eventbus.Error, tmerrors.ErrTooManyRenewRequests)
		return false
	}

	return true
}

// Reset clears the observed window. The facade never calls it; it is
// used by tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.times = nil
}
