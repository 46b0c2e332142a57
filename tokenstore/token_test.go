package tokenstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_Validate(t *testing.T) {
	valid := Token{Scopes: []string{"openid"}, ExpiresAt: 2000000000, IDToken: "X"}
	assert.NoError(t, valid.Validate())

	noScopes := valid
	noScopes.Scopes = nil
	assert.Error(t, noScopes.Validate())

	noExpiry := valid
	noExpiry.ExpiresAt = 0
	assert.Error(t, noExpiry.Validate())

	noDiscriminant := Token{Scopes: []string{"openid"}, ExpiresAt: 2000000000}
	assert.Error(t, noDiscriminant.Validate())

	twoDiscriminants := Token{Scopes: []string{"openid"}, ExpiresAt: 2000000000, IDToken: "X", AccessToken: "Y"}
	assert.Error(t, twoDiscriminants.Validate())
}

func TestToken_EffectiveExpiryAndHasExpired(t *testing.T) {
	tok := Token{Scopes: []string{"openid"}, ExpiresAt: 1000, AccessToken: "a"}

	// invariant 3: expiresAt_effective = expiresAt - expireEarlySeconds - offset/1000
	eff := tok.EffectiveExpiry(30, 0)
	assert.Equal(t, time.Unix(970, 0).UTC(), eff)

	now := time.Unix(960, 0).UTC()
	assert.False(t, tok.HasExpired(now, 30, 0))

	now = time.Unix(980, 0).UTC()
	assert.True(t, tok.HasExpired(now, 30, 0))
}

func TestToken_S6_ExpiredReadSemantics(t *testing.T) {
	tok := Token{Scopes: []string{"openid"}, ExpiresAt: 1000, AccessToken: "a"}
	now := time.Unix(1001, 0).UTC()
	assert.True(t, tok.HasExpired(now, 0, 0))
}

func TestToken_Equal(t *testing.T) {
	a := Token{Scopes: []string{"openid"}, ExpiresAt: 1000, AccessToken: "a"}
	b := a
	assert.True(t, a.Equal(b))

	c := a
	c.AccessToken = "different"
	assert.False(t, a.Equal(c))
}

func TestToken_PreservesUnknownFields(t *testing.T) {
	raw := `{"scopes":["openid"],"expiresAt":1000,"accessToken":"a","futureField":"kept"}`

	var tok Token
	require.NoError(t, json.Unmarshal([]byte(raw), &tok))
	assert.Equal(t, json.RawMessage(`"kept"`), tok.Extra["futureField"])

	out, err := json.Marshal(tok)
	require.NoError(t, err)

	var roundTripped map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	assert.Equal(t, json.RawMessage(`"kept"`), roundTripped["futureField"])
	assert.Equal(t, json.RawMessage(`"a"`), roundTripped["accessToken"])
}
