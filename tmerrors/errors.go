// Package tmerrors collects the typed error taxonomy shared by every
// token-manager component, so callers can errors.Is/errors.As against a
// single package regardless of which component raised the error.
package tmerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Each corresponds to one row of the error taxonomy.
var (
	// ErrUnrecognizedStorageOption is returned when Config.Storage names
	// a backend variant the cascade doesn't know about. Fatal at
	// construction.
	ErrUnrecognizedStorageOption = errors.New("tokenmanager: unrecognized storage option")

	// ErrStorageUnavailable is returned when every backend in the
	// fallback cascade failed to initialize. Fatal at construction.
	ErrStorageUnavailable = errors.New("tokenmanager: no storage backend available")

	// ErrNoTokenForKey is returned by Renew when there is no stored
	// token for the given key.
	ErrNoTokenForKey = errors.New("tokenmanager: no token stored for key")

	// ErrTooManyRenewRequests is never returned from a function call; it
	// is only ever passed as the payload of an "error" event emission
	// when the rate limiter trips.
	ErrTooManyRenewRequests = errors.New("tokenmanager: too many renew requests")

	// ErrCallbackInProgress is returned by Get when the host URL
	// indicates an OAuth callback is in flight.
	ErrCallbackInProgress = errors.New("tokenmanager: OAuth callback in progress")
)

// UnparseableStorageError wraps a JSON parse failure of the persisted
// blob, carrying the storage key that failed to parse.
type UnparseableStorageError struct {
	StorageKey string
	Err        error
}

func (e *UnparseableStorageError) Error() string {
	return fmt.Sprintf("tokenmanager: unparseable storage at key %q: %v", e.StorageKey, e.Err)
}

func (e *UnparseableStorageError) Unwrap() error { return e.Err }

// InvalidTokenError is returned when Add receives a value missing
// scopes, expiresAt, or a discriminant token field. SetTokens writes its
// bundle without validating it and never returns this error.
type InvalidTokenError struct {
	Field string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("tokenmanager: invalid token, missing or malformed %s", e.Field)
}
