package tokenstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okta-compat/token-manager/storage"
)

func TestStore_BlobBackend_SetOneGetOneDeleteOne(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := New(backend, "okta-token-storage")

	tok := Token{Scopes: []string{"openid"}, ExpiresAt: 2000000000, IDToken: "X"}
	require.NoError(t, store.SetOne("id", tok))

	got, ok, err := store.GetOne("id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tok, got)

	removed, ok, err := store.DeleteOne("id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tok, removed)

	_, ok, err = store.GetOne("id")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestStore_AddThenRemoveRestoresBlob verifies that adding then removing
// a token leaves a blob backend byte-identical to before the add.
func TestStore_AddThenRemoveRestoresBlob(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := New(backend, "okta-token-storage")

	before, _, err := backend.GetItem("okta-token-storage")
	require.NoError(t, err)

	tok := Token{Scopes: []string{"openid"}, ExpiresAt: 2000000000, AccessToken: "a"}
	require.NoError(t, store.SetOne("k", tok))
	_, _, err = store.DeleteOne("k")
	require.NoError(t, err)

	after, ok, err := backend.GetItem("okta-token-storage")
	require.NoError(t, err)
	assert.False(t, ok, "removing the last token must remove the storage key entirely, not leave behind {}")
	assert.Equal(t, before, after)
}

func TestStore_KeyedBackend_RoundTrip(t *testing.T) {
	jar := newFakeJarForTest()
	backend := storage.NewCookieBackend(jar, "okta-token-storage", true)
	store := New(backend, "okta-token-storage")

	tok := Token{Scopes: []string{"openid"}, ExpiresAt: 2000000000, RefreshToken: "r"}
	require.NoError(t, store.SetOne("refreshToken", tok))

	all, err := store.Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, tok, all["refreshToken"])

	_, ok, err := store.DeleteOne("refreshToken")
	require.NoError(t, err)
	require.True(t, ok)

	all, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_LoadRoundTripMultipleTokens(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := New(backend, "okta-token-storage")

	want := map[string]Token{
		"idToken":      {Scopes: []string{"openid"}, ExpiresAt: 2000000000, IDToken: "id.jwt"},
		"accessToken":  {Scopes: []string{"openid", "profile"}, ExpiresAt: 2000000500, AccessToken: "a.tok"},
		"refreshToken": {Scopes: []string{"offline_access"}, ExpiresAt: 2000001000, RefreshToken: "r.tok"},
	}
	for key, tok := range want {
		require.NoError(t, store.SetOne(key, tok))
	}

	got, err := store.Load()
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ClearAll(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := New(backend, "okta-token-storage")

	require.NoError(t, store.SetOne("a", Token{Scopes: []string{"s"}, ExpiresAt: 1, AccessToken: "x"}))
	require.NoError(t, store.SetOne("b", Token{Scopes: []string{"s"}, ExpiresAt: 1, AccessToken: "y"}))

	cleared, err := store.ClearAll()
	require.NoError(t, err)
	assert.Len(t, cleared, 2)

	remaining, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
