package tokenstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okta-compat/token-manager/storage"
	"github.com/okta-compat/token-manager/tmerrors"
)

// Store serializes the entire token mapping as one JSON string for blob
// backends, or splits across subkeys for keyed backends, transparently.
// It holds no cache: every call round-trips through the backend, the
// same single-synchronous-write atomicity the repository
// implementations this package is modeled on rely on.
type Store struct {
	mu         sync.Mutex
	backend    storage.Backend
	keyed      storage.KeyedBackend
	storageKey string
}

// New wraps backend. If backend also implements storage.KeyedBackend
// (the cookie backend), Store persists one record per token key instead
// of a single JSON blob.
func New(backend storage.Backend, storageKey string) *Store {
	s := &Store{backend: backend, storageKey: storageKey}
	if kb, ok := backend.(storage.KeyedBackend); ok {
		s.keyed = kb
	}
	return s
}

// Load returns every token currently persisted, keyed by tokenKey.
func (s *Store) Load() (map[string]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (map[string]Token, error) {
	if s.keyed != nil {
		return s.loadKeyed()
	}
	return s.loadBlob()
}

func (s *Store) loadBlob() (map[string]Token, error) {
	raw, ok, err := s.backend.GetItem(s.storageKey)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: read %q: %w", s.storageKey, err)
	}
	if !ok || raw == "" {
		return map[string]Token{}, nil
	}

	var tokens map[string]Token
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, &tmerrors.UnparseableStorageError{StorageKey: s.storageKey, Err: err}
	}
	return tokens, nil
}

func (s *Store) loadKeyed() (map[string]Token, error) {
	keys, err := s.keyed.Keys()
	if err != nil {
		return nil, fmt.Errorf("tokenstore: list keys: %w", err)
	}

	tokens := make(map[string]Token, len(keys))
	for _, key := range keys {
		raw, ok, err := s.keyed.GetItem(key)
		if err != nil {
			return nil, fmt.Errorf("tokenstore: read %q: %w", key, err)
		}
		if !ok || raw == "" {
			continue
		}
		var tok Token
		if err := json.Unmarshal([]byte(raw), &tok); err != nil {
			return nil, &tmerrors.UnparseableStorageError{StorageKey: key, Err: err}
		}
		tokens[key] = tok
	}
	return tokens, nil
}

// Save persists the entire mapping in a single logical write: one
// backend write for blob backends, or a diff-and-touch-only-changed-keys
// pass for keyed backends (cookies have no atomic "replace everything"
// primitive, so Save computes the minimal set of SetItem/RemoveItem
// calls instead of rewriting every record).
func (s *Store) Save(tokens map[string]Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(tokens)
}

func (s *Store) save(tokens map[string]Token) error {
	if s.keyed != nil {
		return s.saveKeyed(tokens)
	}
	return s.saveBlob(tokens)
}

func (s *Store) saveBlob(tokens map[string]Token) error {
	if len(tokens) == 0 {
		if err := s.backend.RemoveItem(s.storageKey); err != nil {
			return fmt.Errorf("tokenstore: remove %q: %w", s.storageKey, err)
		}
		return nil
	}

	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("tokenstore: marshal: %w", err)
	}
	if err := s.backend.SetItem(s.storageKey, string(data)); err != nil {
		return fmt.Errorf("tokenstore: write %q: %w", s.storageKey, err)
	}
	return nil
}

func (s *Store) saveKeyed(tokens map[string]Token) error {
	existing, err := s.loadKeyed()
	if err != nil {
		return err
	}

	for key, tok := range tokens {
		if prior, ok := existing[key]; ok && prior.Equal(tok) {
			continue
		}
		data, err := json.Marshal(tok)
		if err != nil {
			return fmt.Errorf("tokenstore: marshal %q: %w", key, err)
		}
		if err := s.keyed.SetItem(key, string(data)); err != nil {
			return fmt.Errorf("tokenstore: write %q: %w", key, err)
		}
	}
	for key := range existing {
		if _, ok := tokens[key]; !ok {
			if err := s.keyed.RemoveItem(key); err != nil {
				return fmt.Errorf("tokenstore: remove %q: %w", key, err)
			}
		}
	}
	return nil
}

// ParseBlob decodes a raw JSON blob of the shape Save writes for a blob
// backend into a token mapping, without touching any backend. The
// cross-tab synchronizer uses this to diff storage-change payloads it
// observes but must never write back.
func ParseBlob(raw string) (map[string]Token, error) {
	if raw == "" {
		return map[string]Token{}, nil
	}
	var tokens map[string]Token
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, &tmerrors.UnparseableStorageError{Err: err}
	}
	if tokens == nil {
		tokens = map[string]Token{}
	}
	return tokens, nil
}

// GetOne returns the token stored at key, or ok=false if absent.
func (s *Store) GetOne(key string) (Token, bool, error) {
	tokens, err := s.Load()
	if err != nil {
		return Token{}, false, err
	}
	tok, ok := tokens[key]
	return tok, ok, nil
}

// SetOne is a load-mutate-store under the backend's own atomicity.
func (s *Store) SetOne(key string, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}
	if tokens == nil {
		tokens = map[string]Token{}
	}
	tokens[key] = tok
	return s.save(tokens)
}

// DeleteOne removes key, returning the token that was stored there (if
// any) so the caller can emit a removed event carrying the prior value.
func (s *Store) DeleteOne(key string) (Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return Token{}, false, err
	}
	tok, ok := tokens[key]
	if !ok {
		return Token{}, false, nil
	}
	delete(tokens, key)
	if err := s.save(tokens); err != nil {
		return Token{}, false, err
	}
	return tok, true, nil
}

// ClearAll removes every stored token, returning what was there.
func (s *Store) ClearAll() (map[string]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := s.save(map[string]Token{}); err != nil {
		return nil, err
	}
	return tokens, nil
}
