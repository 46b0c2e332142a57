// Package crosstab reacts to storage-change notifications delivered by
// the host (e.g. the browser's "storage" event, fired in other tabs
// when one tab mutates shared storage) and replays the same added/
// removed lifecycle the facade emits for local mutations, without ever
// writing back to storage itself. Grounded structurally on
// this repository's background-goroutine-plus-lifecycle-channel shape
// (service.InMemoryTokenManager's auto-refresh goroutine,
// security.MemoryRateLimiter's cleanup routine), generalized from
// "poll on a ticker" to "react to a pushed notification": the host
// delivers discrete change events here, not a steady clock, so a
// callback subscription is the correct shape rather than a ticker loop.
package crosstab

import (
	"sync"
	"time"

	"github.com/okta-compat/token-manager/clock"
	"github.com/okta-compat/token-manager/eventbus"
	"github.com/okta-compat/token-manager/scheduler"
	"github.com/okta-compat/token-manager/tokenstore"
)

// Notifier is the host capability this package observes: Subscribe
// registers onChange to be called whenever the underlying storage
// medium changes key (from any tab), and returns a function that
// cancels the subscription.
type Notifier interface {
	Subscribe(onChange func(key *string, oldValue, newValue *string)) (unsubscribe func())
}

// Synchronizer diffs storage-change notifications against the
// configured storageKey and re-emits added/removed events plus
// re-arming expiration timers, without touching storage.
type Synchronizer struct {
	storageKey string
	delay      time.Duration
	sched      *scheduler.Scheduler
	bus        eventbus.Bus
	clock      clock.Clock
	expireEarlySeconds int
	sleep      func(time.Duration)

	mu          sync.Mutex
	unsubscribe func()
}

// New returns a Synchronizer. delay is the host's
// _storageEventDelay: how long to wait, after observing a change,
// before acting on it (legacy hosts fire the notification before the
// write is visible to readers). sleep defaults to time.Sleep; tests
// inject a no-op or instrumented sleeper instead of waiting for real.
func New(storageKey string, delay time.Duration, expireEarlySeconds int, sched *scheduler.Scheduler, bus eventbus.Bus, clk clock.Clock, sleep func(time.Duration)) *Synchronizer {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Synchronizer{
		storageKey:         storageKey,
		delay:              delay,
		expireEarlySeconds: expireEarlySeconds,
		sched:              sched,
		bus:                bus,
		clock:              clk,
		sleep:              sleep,
	}
}

// Start subscribes to notifier. Calling Start twice without an
// intervening Stop replaces the previous subscription.
func (s *Synchronizer) Start(notifier Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = notifier.Subscribe(s.onChange)
}

// Stop cancels the subscription, if any.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Synchronizer) onChange(key *string, oldValue, newValue *string) {
	if key != nil && *key != s.storageKey {
		return
	}
	if stringsEqual(oldValue, newValue) {
		return
	}

	s.sleep(s.delay)

	oldTokens, err := parseOrEmpty(oldValue)
	if err != nil {
		s.bus.Emit(eventbus.Error, err)
		return
	}
	newTokens, err := parseOrEmpty(newValue)
	if err != nil {
		s.bus.Emit(eventbus.Error, err)
		return
	}

	for k, tok := range newTokens {
		if prior, existed := oldTokens[k]; !existed || !prior.Equal(tok) {
			s.bus.Emit(eventbus.Added, k, tok)
		}
	}
	for k, tok := range oldTokens {
		if _, stillPresent := newTokens[k]; !stillPresent {
			s.bus.Emit(eventbus.Removed, k, tok)
		}
	}

	targets := make(map[string]time.Time, len(newTokens))
	for k, tok := range newTokens {
		targets[k] = tok.EffectiveExpiry(s.expireEarlySeconds, 0)
	}
	s.sched.Rearm(targets)
}

func stringsEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func parseOrEmpty(raw *string) (map[string]tokenstore.Token, error) {
	if raw == nil {
		return map[string]tokenstore.Token{}, nil
	}
	return tokenstore.ParseBlob(*raw)
}
