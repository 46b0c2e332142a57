// Package scheduler maintains a mapping from tokenKey to a single
// deferred timer, firing an expired callback at each token's effective
// expiry instant. Grounded on this repository's ticker-plus-stopChan
// background-goroutine lifecycle
// (service.InMemoryTokenManager.StartAutoRefresh/autoRefreshLoop/Stop,
// service/scheduler.Scheduler.Start/runLoop/Stop), generalized here from
// "one or two fixed-interval tickers" to "one one-shot timer per
// dynamically-keyed token", since each token in this module expires at
// its own instant rather than on a shared polling cadence.
package scheduler

import (
	"sync"
	"time"

	"github.com/okta-compat/token-manager/clock"
)

// maxTimerSpan bounds how far out a single host timer is armed before
// this package re-evaluates and re-arms: delays greater than the host's
// maximum timer span are clamped and rescheduled by chaining. Chosen
// generously (far longer than any
// reasonable access/refresh token lifetime) so chaining is exercised
// only by pathological expiries, the same way a 32-bit millisecond
// setTimeout overflows only past ~24.8 days in a browser host.
const maxTimerSpan = 24 * time.Hour

// Scheduler arms and cancels per-key expiration timers.
type Scheduler struct {
	clock clock.Clock
	fire  func(key string)

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// New returns a Scheduler that invokes fire(key) when key's armed expiry
// is reached. fire is called on the timer's own goroutine, matching this
// repository's tickers (no dedicated dispatch goroutine beyond what
// time.AfterFunc already provides).
func New(clk clock.Clock, fire func(key string)) *Scheduler {
	return &Scheduler{clock: clk, fire: fire, timers: make(map[string]*time.Timer)}
}

// Arm cancels any existing timer for key and starts a new one targeting
// expiresAtEffective, keeping at most one active timer per key.
func (s *Scheduler) Arm(key string, expiresAtEffective time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.armLocked(key, expiresAtEffective)
}

func (s *Scheduler) armLocked(key string, target time.Time) {
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}

	wait := target.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}
	clamped := wait > maxTimerSpan
	if clamped {
		wait = maxTimerSpan
	}

	s.timers[key] = time.AfterFunc(wait, func() { s.onFire(key, target, clamped) })
}

func (s *Scheduler) onFire(key string, target time.Time, clamped bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if clamped && s.clock.Now().Before(target) {
		// The host timer span was clamped short of the real target;
		// re-arm for the remainder rather than firing early.
		s.armLocked(key, target)
		s.mu.Unlock()
		return
	}

	delete(s.timers, key)
	s.mu.Unlock()

	s.fire(key)
}

// Cancel stops key's timer, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// CancelAll stops every armed timer, without closing the scheduler for
// future Arm calls.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAllLocked()
}

func (s *Scheduler) cancelAllLocked() {
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

// Rearm cancels every timer and arms a fresh one per entry in targets,
// used by the cross-tab synchronizer on backend replacement.
func (s *Scheduler) Rearm(targets map[string]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelAllLocked()
	for key, target := range targets {
		s.armLocked(key, target)
	}
}

// Close cancels every timer and makes the scheduler inert, used on
// facade destruction.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAllLocked()
	s.closed = true
}
