// Package tokenmanager is the facade orchestrating storage, the event
// bus, the expiration scheduler, renewal coordination, the rate
// limiter, and cross-tab synchronization into the operations a caller
// actually calls: Add, Get, GetTokens, SetTokens, Remove, Clear,
// HasExpired, Renew. Grounded on
// service.TokenManagementService/service.InMemoryTokenManager as the
// orchestration layer sitting above the repository and driver packages,
// generalized here from "one fixed token" to "an arbitrary set of keyed
// tokens" wired through the leaf packages this module builds.
package tokenmanager

import (
	"time"

	"github.com/okta-compat/token-manager/storage"
)

// Config mirrors the constructor-option structs this facade is grounded
// on (NewTokenManagementServiceWithBuffer, NewOAuth2ClientWithFallback),
// generalized into one options struct covering every tunable the facade
// exposes.
type Config struct {
	// Storage selects the backend variant; "" auto-cascades through
	// localStorage, sessionStorage, cookie in order.
	Storage storage.Option
	// StorageKey names the top-level persisted key. Defaults to
	// "okta-token-storage".
	StorageKey string
	// ExpireEarlySeconds subtracts from a token's expiresAt before it is
	// considered expired. nil defaults to 30; an explicit 0 is honored
	// (tests that need exact-expiry semantics set this to a pointer to 0).
	ExpireEarlySeconds *int
	// AutoRenew, when true, invokes the RenewCoordinator whenever a
	// token's timer fires instead of simply emitting expired.
	AutoRenew bool
	// AutoRemove, when true and AutoRenew is false, deletes a token from
	// storage when its timer fires.
	AutoRemove bool
	// LocalClockOffset is how far the local clock trails the server
	// clock; positive values mean the local clock is behind.
	LocalClockOffset time.Duration
	// Secure controls the cookie backend's secure/sameSite attributes.
	Secure bool
	// StorageEventDelay is how long the cross-tab synchronizer waits
	// after observing a change before acting on it.
	StorageEventDelay time.Duration

	LocalStore   storage.KeyedStore
	SessionStore storage.KeyedStore
	CookieJar    storage.CookieJar
	Custom       storage.Backend
}

const defaultStorageKey = "okta-token-storage"
const defaultExpireEarlySeconds = 30

func (c Config) withDefaults() Config {
	if c.StorageKey == "" {
		c.StorageKey = defaultStorageKey
	}
	if c.ExpireEarlySeconds == nil {
		d := defaultExpireEarlySeconds
		c.ExpireEarlySeconds = &d
	}
	return c
}

func (c Config) expireEarlySeconds() int {
	if c.ExpireEarlySeconds == nil {
		return defaultExpireEarlySeconds
	}
	return *c.ExpireEarlySeconds
}
