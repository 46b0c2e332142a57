package renew

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// circuitState is the renewal circuit's current mode: closed lets
// every call through, open rejects immediately, half-open lets a
// limited number of probes through to test recovery. Adapted from
// utils.CircuitBreaker, generalized from "protect one upstream API
// client" to "protect the shared token endpoint every Coordinator.Renew
// call eventually reaches".
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes when the renewal circuit trips and how it
// tests recovery.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // consecutive half-open successes before closing
	Timeout          time.Duration // how long the circuit stays open before probing
	MaxProbes        int           // concurrent half-open requests allowed
}

// DefaultCircuitBreakerConfig mirrors the corpus's defaults for an
// API-client circuit breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Timeout:          30 * time.Second,
		MaxProbes:        2,
	}
}

// ErrCircuitOpen is returned by circuitBreaker.Run when the renewal
// endpoint has tripped the circuit and is not yet due for a recovery probe.
var ErrCircuitOpen = errors.New("renew: circuit breaker open, token endpoint assumed unhealthy")

// circuitBreaker wraps the underlying Client.Renew call so that a
// token endpoint in sustained failure stops receiving new requests for
// Timeout, instead of every caller's renewal attempt hitting it in turn.
type circuitBreaker struct {
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu           sync.Mutex
	state        circuitState
	failureCount int
	successCount int
	nextRetry    time.Time
	halfOpenUsed int
}

func newCircuitBreaker(cfg CircuitBreakerConfig, logger *slog.Logger) *circuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &circuitBreaker{cfg: cfg, logger: logger, state: circuitClosed}
}

// Run executes fn if the circuit currently allows it, tracking the
// outcome against the configured thresholds.
func (cb *circuitBreaker) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	if err != nil {
		cb.onFailure(err)
	} else {
		cb.onSuccess()
	}
	return err
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Now().After(cb.nextRetry) {
			cb.transition(circuitHalfOpen)
			cb.halfOpenUsed++
			return true
		}
		return false
	case circuitHalfOpen:
		if cb.halfOpenUsed < cb.cfg.MaxProbes {
			cb.halfOpenUsed++
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *circuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		cb.failureCount = 0
	case circuitHalfOpen:
		cb.successCount++
		cb.halfOpenUsed--
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.transition(circuitClosed)
		}
	}
}

func (cb *circuitBreaker) onFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.logger.Warn("renew: circuit breaker opening", "failure_count", cb.failureCount, "error", err)
			cb.transition(circuitOpen)
		}
	case circuitHalfOpen:
		cb.halfOpenUsed--
		cb.logger.Warn("renew: circuit breaker re-opening after half-open failure", "error", err)
		cb.transition(circuitOpen)
	}
}

func (cb *circuitBreaker) transition(next circuitState) {
	cb.state = next
	switch next {
	case circuitClosed:
		cb.failureCount, cb.successCount, cb.halfOpenUsed = 0, 0, 0
	case circuitOpen:
		cb.nextRetry = time.Now().Add(cb.cfg.Timeout)
		cb.successCount, cb.halfOpenUsed = 0, 0
	case circuitHalfOpen:
		cb.successCount, cb.halfOpenUsed = 0, 0
	}
}

// State reports the circuit's current mode, for diagnostics.
func (cb *circuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}
