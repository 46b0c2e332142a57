// Package storage implements the pluggable persistence layer for the
// token manager: a uniform key-value capability with variant-specific
// fallback and error surface. Grounded on this repository's pattern of
// one file per repository.OAuth2TokenRepository implementation
// (env_file_token_repository.go, env_var_token_repository.go,
// kubernetes_secret_repository.go, secret_token_repository.go,
// remote_token_repository.go, in_memory_token_repository.go), generalized
// here from "one OAuth2 token record" to "an arbitrary string blob".
package storage

import "errors"

// ErrNotFound is an error a backend may return from GetItem for a key
// that has never been set. The backends in this package do not use it:
// they return ("", false, nil) instead. TokenStore treats only that
// ok=false form as "absent"; an ErrNotFound error is propagated like any
// other read error.
var ErrNotFound = errors.New("storage: item not found")

// Backend is the uniform persistence capability every storage medium
// implements: getItem/setItem/removeItem/clear.
type Backend interface {
	// GetItem returns the value stored at key, or ok=false if unset.
	GetItem(key string) (value string, ok bool, err error)

	// SetItem stores value at key. A returned error signals a
	// write-time failure (e.g. quota) that the caller should treat as
	// cause for cascading to the next backend in the fallback order.
	SetItem(key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(key string) error

	// Clear deletes every key this backend is responsible for.
	Clear() error
}

// KeyedBackend is satisfied by backends that persist one physical record
// per logical subkey (the cookie backend) rather than a single blob.
// TokenStore type-switches on this to decide whether to read/write the
// whole token map as one JSON document or to diff and touch only the
// subkeys that changed.
type KeyedBackend interface {
	Backend

	// Keys lists every subkey currently persisted.
	Keys() ([]string, error)
}
