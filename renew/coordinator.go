// Package renew coordinates token renewal so that concurrent callers
// asking to renew the same key share one in-flight refresh rather than
// issuing duplicate grant requests. Grounded on
// service.TokenManagementService.refreshTokenWithRetry's
// golang.org/x/sync/singleflight usage, generalized from a single
// hardcoded "token_refresh" key to a per-tokenKey key: that service only
// ever manages one token, this coordinator manages however many keys
// the caller stores (idToken/accessToken/refreshToken, or more).
package renew

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/okta-compat/token-manager/clock"
	"github.com/okta-compat/token-manager/eventbus"
	"github.com/okta-compat/token-manager/tokenstore"
)

// Client performs the actual renewal of a single key against whatever
// collaborator issues fresh tokens (authorization server, proxy, etc).
// The token-manager module has no opinion on how Renew is implemented;
// it only orchestrates when and how often it is called.
type Client interface {
	Renew(ctx context.Context, key string) (tokenstore.Token, error)
}

// Metrics mirrors the counters TokenManagementMetrics keeps, trimmed to
// what a single-flight coordinator with no retry loop of its own can
// actually observe.
type Metrics struct {
	Attempts        int64
	Successes       int64
	Failures        int64
	SingleFlightHits int64
}

// Coordinator renews tokens one key at a time, collapsing concurrent
// requests for the same key into a single underlying call.
type Coordinator struct {
	group  singleflight.Group
	client Client
	store  *tokenstore.Store
	bus    eventbus.Bus
	clock  clock.Clock
	logger *slog.Logger
	breaker *circuitBreaker

	// expireEarlySeconds mirrors the facade's configured early-expiry
	// window, so the failure path below judges "was this token already
	// expired" with the same expiresAt_effective formula Get/Add/
	// SetTokens use, instead of comparing against raw expiresAt. The
	// clock-offset argument to EffectiveExpiry/HasExpired is always 0
	// here: clock is already offset-aware (see clock.New), matching how
	// crosstab.Synchronizer calls the same methods.
	expireEarlySeconds int

	mu      sync.Mutex
	metrics Metrics
}

// New returns a Coordinator. logger defaults to slog.Default() when nil,
// matching the constructors throughout service/ and security/ this
// coordinator is grounded on. A circuit breaker around the underlying
// Client.Renew call trips after repeated endpoint failures so that a
// dead token endpoint stops receiving a fresh request from every caller
// that happens to ask for a renewal while it is down.
func New(client Client, store *tokenstore.Store, bus eventbus.Bus, clk clock.Clock, expireEarlySeconds int, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		client:             client,
		store:              store,
		bus:                bus,
		clock:              clk,
		logger:             logger,
		expireEarlySeconds: expireEarlySeconds,
		breaker:            newCircuitBreaker(DefaultCircuitBreakerConfig(), logger),
	}
}

// Renew fetches a fresh token for key, deduplicating concurrent calls
// for the same key via singleflight. On success it swaps the stored
// token in a single write, then emits renewed, added, removed in that
// order.
func (c *Coordinator) Renew(ctx context.Context, key string) (tokenstore.Token, error) {
	c.mu.Lock()
	c.metrics.Attempts++
	c.mu.Unlock()

	leader := false
	v, err, shared := c.group.Do(key, func() (any, error) {
		leader = true
		return c.doRenew(ctx, key)
	})

	// singleflight reports shared=true to the caller that ran the call as
	// well; only callers that joined someone else's flight count as hits.
	if shared && !leader {
		c.mu.Lock()
		c.metrics.SingleFlightHits++
		c.mu.Unlock()
		c.logger.Debug("renewal result shared from concurrent call", "key", key)
	}

	if err != nil {
		c.mu.Lock()
		c.metrics.Failures++
		c.mu.Unlock()
		return tokenstore.Token{}, err
	}

	c.mu.Lock()
	c.metrics.Successes++
	c.mu.Unlock()
	return v.(tokenstore.Token), nil
}

func (c *Coordinator) doRenew(ctx context.Context, key string) (tokenstore.Token, error) {
	old, hadOld, err := c.store.GetOne(key)
	if err != nil {
		return tokenstore.Token{}, &Error{Key: key, Err: err}
	}

	var fresh tokenstore.Token
	err = c.breaker.Run(ctx, func(ctx context.Context) error {
		var renewErr error
		fresh, renewErr = c.client.Renew(ctx, key)
		return renewErr
	})
	if err != nil {
		c.logger.Warn("token renewal failed", "key", key, "error", err)
		c.bus.Emit(eventbus.Error, &Error{Key: key, Err: err})
		if hadOld && old.HasExpired(c.clock.Now(), c.expireEarlySeconds, 0) {
			// The token we had was already expired and renewal just
			// failed outright: nothing useful is left to keep around.
			if _, _, delErr := c.store.DeleteOne(key); delErr == nil {
				c.bus.Emit(eventbus.Removed, key, old)
			}
		}
		return tokenstore.Token{}, &Error{Key: key, Err: err}
	}

	if err := c.store.SetOne(key, fresh); err != nil {
		return tokenstore.Token{}, &Error{Key: key, Err: err}
	}

	c.bus.Emit(eventbus.Renewed, key, fresh, old)
	c.bus.Emit(eventbus.Added, key, fresh)
	if hadOld {
		c.bus.Emit(eventbus.Removed, key, old)
	}
	c.logger.Info("token renewed", "key", key)

	return fresh, nil
}

// SnapshotMetrics returns a copy of the coordinator's running counters.
func (c *Coordinator) SnapshotMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// CircuitState reports the renewal circuit breaker's current mode
// ("closed", "open", "half-open"), for diagnostics.
func (c *Coordinator) CircuitState() string {
	return c.breaker.State()
}

// Error tags a renewal failure with the key that failed, so callers can
// errors.As it to recover which token key needs attention — the typed
// analogue of a flat fmt.Errorf("token refresh failed: %w", err),
// generalized because this coordinator has more than one key to be
// wrong about.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("renew %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
