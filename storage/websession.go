package storage

import "log/slog"

// NewLocalStorageBackend wraps a host's localStorage-equivalent
// KeyedStore. Kept as its own constructor (rather than folded into
// NewWebStorageBackend) so the cascade in cascade.go can name each
// variant explicitly, preserving the fixed fallback order.
func NewLocalStorageBackend(store KeyedStore, logger *slog.Logger) (*WebStorageBackend, error) {
	return NewWebStorageBackend(store, "localStorage", logger)
}

// NewSessionStorageBackend wraps a host's sessionStorage-equivalent
// KeyedStore.
func NewSessionStorageBackend(store KeyedStore, logger *slog.Logger) (*WebStorageBackend, error) {
	return NewWebStorageBackend(store, "sessionStorage", logger)
}
