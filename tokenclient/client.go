// Package tokenclient defines the external collaborator the renewal
// coordinator calls to actually obtain a fresh token, plus an HTTP
// reference implementation for local demos and integration tests.
// Building OAuth requests and parsing their responses is explicitly out
// of scope for this module's core — the reference client exists only
// so something concrete can be wired into renew.Coordinator.
package tokenclient

import (
	"context"

	"github.com/okta-compat/token-manager/tokenstore"
)

// Client renews the token stored under key and returns its replacement.
type Client interface {
	Renew(ctx context.Context, key string) (tokenstore.Token, error)
}
