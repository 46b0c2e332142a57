package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieBackend_SetGetRemove(t *testing.T) {
	jar := newFakeCookieJar()
	b := NewCookieBackend(jar, "okta-token-storage", true)

	require.NoError(t, b.SetItem("idToken", `{"idToken":"X"}`))

	v, ok, err := b.GetItem("idToken")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"idToken":"X"}`, v)

	keys, err := b.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"idToken"}, keys)

	// underlying cookie carries the prefix
	_, ok, _ = jar.Cookie("okta-token-storage_idToken")
	assert.True(t, ok)

	require.NoError(t, b.RemoveItem("idToken"))
	_, ok, err = b.GetItem("idToken")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err = b.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCookieBackend_ClearRemovesIndex(t *testing.T) {
	jar := newFakeCookieJar()
	b := NewCookieBackend(jar, "okta-token-storage", false)

	require.NoError(t, b.SetItem("accessToken", "a"))
	require.NoError(t, b.SetItem("refreshToken", "r"))

	require.NoError(t, b.Clear())

	keys, err := b.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	_, ok, _ := jar.Cookie("okta-token-storage")
	assert.False(t, ok)
}
