package storage

import (
	"fmt"
	"log/slog"
)

// KeyedStore is the capability a host environment exposes for its
// synchronous keyed storage media (localStorage / sessionStorage in a
// browser host). It is the seam a JS-bridge, wasm, or Electron host would
// implement; WebStorageBackend wraps it verbatim the way
// EnvFileTokenRepository wraps the filesystem.
type KeyedStore interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Clear() error
}

// WebStorageBackend adapts a host KeyedStore to Backend. Construction
// probes the store with a write-then-delete of a sentinel key; a probe
// failure means the medium is unavailable (disabled cookies, private
// browsing, quota already exhausted) and the caller should fall back to
// the next backend in the cascade.
type WebStorageBackend struct {
	store  KeyedStore
	logger *slog.Logger
	name   string // "localStorage" or "sessionStorage", for error/log context
}

const probeKey = "__token_manager_probe__"

// NewWebStorageBackend wraps store after a successful availability probe.
// name identifies the medium in log messages and the cascade's warning
// text ("This browser doesn't support <X>.").
func NewWebStorageBackend(store KeyedStore, name string, logger *slog.Logger) (*WebStorageBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b := &WebStorageBackend{store: store, logger: logger, name: name}
	if err := b.probe(); err != nil {
		logger.Warn("storage medium unavailable", "medium", name, "error", err)
		return nil, fmt.Errorf("%s unavailable: %w", name, err)
	}
	return b, nil
}

func (b *WebStorageBackend) probe() error {
	if err := b.store.SetItem(probeKey, "1"); err != nil {
		return err
	}
	return b.store.RemoveItem(probeKey)
}

func (b *WebStorageBackend) GetItem(key string) (string, bool, error) {
	return b.store.GetItem(key)
}

func (b *WebStorageBackend) SetItem(key, value string) error {
	if err := b.store.SetItem(key, value); err != nil {
		b.logger.Warn("storage write failed, caller should cascade to next backend",
			"medium", b.name, "error", err)
		return err
	}
	return nil
}

func (b *WebStorageBackend) RemoveItem(key string) error {
	return b.store.RemoveItem(key)
}

func (b *WebStorageBackend) Clear() error {
	return b.store.Clear()
}
