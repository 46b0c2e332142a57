package storage

import (
	"fmt"
	"log/slog"

	"github.com/okta-compat/token-manager/tmerrors"
)

// Option names the recognized values of Config.Storage.
type Option string

const (
	OptionLocalStorage   Option = "localStorage"
	OptionSessionStorage Option = "sessionStorage"
	OptionCookie         Option = "cookie"
	OptionMemory         Option = "memory"
)

// cascadeOrder is the fixed fallback order: configured backend, then
// whichever of these comes next when the prior one is unavailable or
// fails to write.
var cascadeOrder = []Option{OptionLocalStorage, OptionSessionStorage, OptionCookie}

// CascadeConfig carries everything the selection cascade needs: which
// option was requested (empty means "auto, first available"), the hosts
// for each concrete medium, and the bits a CookieBackend needs.
type CascadeConfig struct {
	Storage      Option // "" selects auto-cascade
	Custom       Backend
	StorageKey   string
	Secure       bool
	LocalStore   KeyedStore
	SessionStore KeyedStore
	CookieJar    CookieJar
}

// Select runs the construction-time backend selection cascade. warn is
// called with the message format below whenever a downgrade occurs:
// "This browser doesn't support <X>. Switching to <Y>."
func Select(cfg CascadeConfig, warn func(string), logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Custom != nil {
		return cfg.Custom, nil
	}

	if cfg.Storage == OptionMemory {
		return NewMemoryBackend(), nil
	}

	order := cascadeOrder
	if cfg.Storage != "" {
		idx := indexOf(order, cfg.Storage)
		if idx == -1 {
			return nil, fmt.Errorf("%w: %q", tmerrors.ErrUnrecognizedStorageOption, cfg.Storage)
		}
		order = order[idx:]
	}

	var lastErr error
	for i, opt := range order {
		backend, err := build(cfg, opt, logger)
		if err == nil {
			return backend, nil
		}
		lastErr = err
		if i+1 < len(order) {
			warn(fmt.Sprintf("This browser doesn't support %s. Switching to %s.", opt, order[i+1]))
		}
	}

	return nil, fmt.Errorf("%w: %v", tmerrors.ErrStorageUnavailable, lastErr)
}

func build(cfg CascadeConfig, opt Option, logger *slog.Logger) (Backend, error) {
	switch opt {
	case OptionLocalStorage:
		if cfg.LocalStore == nil {
			return nil, fmt.Errorf("localStorage: no host store configured")
		}
		return NewLocalStorageBackend(cfg.LocalStore, logger)
	case OptionSessionStorage:
		if cfg.SessionStore == nil {
			return nil, fmt.Errorf("sessionStorage: no host store configured")
		}
		return NewSessionStorageBackend(cfg.SessionStore, logger)
	case OptionCookie:
		if cfg.CookieJar == nil {
			return nil, fmt.Errorf("cookie: no host jar configured")
		}
		return NewCookieBackend(cfg.CookieJar, cfg.StorageKey, cfg.Secure), nil
	case OptionMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", tmerrors.ErrUnrecognizedStorageOption, opt)
	}
}

func indexOf(order []Option, opt Option) int {
	for i, o := range order {
		if o == opt {
			return i
		}
	}
	return -1
}
