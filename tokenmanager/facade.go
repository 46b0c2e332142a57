package tokenmanager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/okta-compat/token-manager/clock"
	"github.com/okta-compat/token-manager/crosstab"
	"github.com/okta-compat/token-manager/eventbus"
	"github.com/okta-compat/token-manager/ratelimit"
	"github.com/okta-compat/token-manager/renew"
	"github.com/okta-compat/token-manager/scheduler"
	"github.com/okta-compat/token-manager/storage"
	"github.com/okta-compat/token-manager/tmerrors"
	"github.com/okta-compat/token-manager/tokenstore"
)

// CallbackDetector reports whether the host is currently mid OAuth
// callback (PKCE redirect still being processed), in which case Get
// must refuse rather than return a token. The default is a no-op that
// never reports an in-progress callback, since detecting this requires
// inspecting the host's current URL — an external collaborator this
// module's core does not own.
type CallbackDetector interface {
	InProgress() bool
}

type noCallbackDetector struct{}

func (noCallbackDetector) InProgress() bool { return false }

// Tokens is the key-agnostic projection GetTokens returns, selecting by
// discriminant field presence rather than by tokenKey.
type Tokens struct {
	IDToken      *tokenstore.Token
	AccessToken  *tokenstore.Token
	RefreshToken *tokenstore.Token
}

// Facade is the TokenManager: the single type applications construct
// and call.
type Facade struct {
	cfg      Config
	store    *tokenstore.Store
	bus      eventbus.Bus
	clock    clock.Clock
	sched    *scheduler.Scheduler
	coord    *renew.Coordinator
	limiter  *ratelimit.Limiter
	sync     *crosstab.Synchronizer
	detector CallbackDetector
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New constructs a Facade. client performs renewal, bus is the shared
// event capability (defaults to a private eventbus.New() if nil),
// notifier is the cross-tab storage-change source (may be nil to skip
// cross-tab synchronization entirely), and warn receives cascade
// downgrade warnings.
func New(cfg Config, client renew.Client, bus eventbus.Bus, notifier crosstab.Notifier, detector CallbackDetector, logger *slog.Logger, warn func(string)) (*Facade, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = eventbus.New()
	}
	if detector == nil {
		detector = noCallbackDetector{}
	}
	if warn == nil {
		warn = func(msg string) { logger.Warn(msg) }
	}

	backend, err := storage.Select(storage.CascadeConfig{
		Storage:      cfg.Storage,
		Custom:       cfg.Custom,
		StorageKey:   cfg.StorageKey,
		Secure:       cfg.Secure,
		LocalStore:   cfg.LocalStore,
		SessionStore: cfg.SessionStore,
		CookieJar:    cfg.CookieJar,
	}, warn, logger)
	if err != nil {
		return nil, fmt.Errorf("tokenmanager: select storage backend: %w", err)
	}

	store := tokenstore.New(backend, cfg.StorageKey)
	// clk already folds LocalClockOffset into every Now() call, so every
	// EffectiveExpiry/HasExpired call below that uses clk for "now" must
	// pass 0 as the offset argument — passing cfg.LocalClockOffset again
	// would subtract it twice. crosstab.New receives the same clk for
	// the same reason.
	clk := clock.New(cfg.LocalClockOffset)

	f := &Facade{cfg: cfg, store: store, bus: bus, clock: clk, detector: detector, logger: logger}

	f.sched = scheduler.New(clk, f.onExpire)
	f.coord = renew.New(client, store, bus, clk, cfg.expireEarlySeconds(), logger)
	f.limiter = ratelimit.New(bus, clk)

	if notifier != nil {
		f.sync = crosstab.New(cfg.StorageKey, cfg.StorageEventDelay, cfg.expireEarlySeconds(), f.sched, bus, clk, nil)
		f.sync.Start(notifier)
	}

	existing, err := store.Load()
	if err == nil {
		for key, tok := range existing {
			f.sched.Arm(key, tok.EffectiveExpiry(cfg.expireEarlySeconds(), 0))
		}
	}

	return f, nil
}

// Add validates tok, writes it under key, emits added, and arms its
// expiration timer.
func (f *Facade) Add(key string, tok tokenstore.Token) error {
	if err := tok.Validate(); err != nil {
		return err
	}

	prior, hadPrior, err := f.store.GetOne(key)
	if err != nil {
		return err
	}
	if hadPrior && prior.Equal(tok) {
		return nil
	}

	if err := f.store.SetOne(key, tok); err != nil {
		return err
	}

	f.bus.Emit(eventbus.Added, key, tok)
	f.sched.Arm(key, tok.EffectiveExpiry(f.cfg.expireEarlySeconds(), 0))
	return nil
}

// Get returns the token stored at key, or ok=false if it is absent or
// expired.
func (f *Facade) Get(key string) (tokenstore.Token, bool, error) {
	if f.detector.InProgress() {
		return tokenstore.Token{}, false, tmerrors.ErrCallbackInProgress
	}

	tok, ok, err := f.store.GetOne(key)
	if err != nil || !ok {
		return tokenstore.Token{}, false, err
	}
	if f.HasExpired(tok) {
		return tokenstore.Token{}, false, nil
	}
	return tok, true, nil
}

// HasExpired is the pure check shared by Get and the scheduler. The
// offset argument is 0 because f.clock is already offset-aware (see
// clock.New in New above) — passing cfg.LocalClockOffset here too would
// subtract it twice.
func (f *Facade) HasExpired(tok tokenstore.Token) bool {
	return tok.HasExpired(f.clock.Now(), f.cfg.expireEarlySeconds(), 0)
}

// GetTokens projects whatever is stored into the idToken/accessToken/
// refreshToken-shaped bundle, selecting by discriminant field presence
// rather than by tokenKey.
func (f *Facade) GetTokens() (Tokens, error) {
	all, err := f.store.Load()
	if err != nil {
		return Tokens{}, err
	}

	var out Tokens
	for _, tok := range all {
		t := tok
		switch {
		case t.IDToken != "":
			out.IDToken = &t
		case t.AccessToken != "":
			out.AccessToken = &t
		case t.RefreshToken != "":
			out.RefreshToken = &t
		}
	}
	return out, nil
}

// SetTokens writes the provided bundle verbatim in a single backend
// write, diffing against the existing store to emit added for each new
// or changed key and removed for each dropped key. Shapes are not
// validated before writing — the source this module generalizes writes
// verbatim too, and changing that would be a behavioral divergence, not
// a generalization.
func (f *Facade) SetTokens(bundle map[string]tokenstore.Token) error {
	existing, err := f.store.Load()
	if err != nil {
		return err
	}

	if err := f.store.Save(bundle); err != nil {
		return err
	}

	for key, tok := range bundle {
		if prior, existed := existing[key]; !existed || !prior.Equal(tok) {
			f.bus.Emit(eventbus.Added, key, tok)
		}
		f.sched.Arm(key, tok.EffectiveExpiry(f.cfg.expireEarlySeconds(), 0))
	}
	for key, tok := range existing {
		if _, stillPresent := bundle[key]; !stillPresent {
			f.bus.Emit(eventbus.Removed, key, tok)
			f.sched.Cancel(key)
		}
	}

	return nil
}

// Remove deletes key and emits removed with the prior value, if any.
func (f *Facade) Remove(key string) error {
	tok, ok, err := f.store.DeleteOne(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	f.sched.Cancel(key)
	f.bus.Emit(eventbus.Removed, key, tok)
	return nil
}

// Clear deletes every stored token, emitting removed per key.
func (f *Facade) Clear() error {
	cleared, err := f.store.ClearAll()
	if err != nil {
		return err
	}
	f.sched.CancelAll()
	for key, tok := range cleared {
		f.bus.Emit(eventbus.Removed, key, tok)
	}
	return nil
}

// Renew delegates to the RenewCoordinator.
func (f *Facade) Renew(ctx context.Context, key string) (tokenstore.Token, error) {
	if _, ok, err := f.store.GetOne(key); err != nil {
		return tokenstore.Token{}, err
	} else if !ok {
		return tokenstore.Token{}, tmerrors.ErrNoTokenForKey
	}
	return f.coord.Renew(ctx, key)
}

// onExpire is the scheduler's fire callback: depending on
// configuration it triggers an autoRenew (gated by the rate limiter),
// removes the token (autoRemove), or simply emits expired.
func (f *Facade) onExpire(key string) {
	tok, ok, err := f.store.GetOne(key)
	if err != nil || !ok {
		return
	}

	f.bus.Emit(eventbus.Expired, key, tok)

	if f.cfg.AutoRenew {
		if !f.limiter.Allow() {
			return
		}
		go func() {
			if _, err := f.coord.Renew(context.Background(), key); err != nil {
				f.logger.Warn("autoRenew failed", "key", key, "error", err)
			}
		}()
		return
	}

	if f.cfg.AutoRemove {
		if removed, ok, err := f.store.DeleteOne(key); err == nil && ok {
			f.bus.Emit(eventbus.Removed, key, removed)
		}
	}
}

// Close cancels every scheduler timer and unsubscribes from the
// storage-change channel, per the facade-destruction contract.
func (f *Facade) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.sched.Close()
	if f.sync != nil {
		f.sync.Stop()
	}
}
