package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CookieAttrs describes the attributes the CookieBackend asks the host
// to set on every record it writes: a far-future expiry and, on HTTPS
// origins, secure+sameSite=none.
type CookieAttrs struct {
	Expires  time.Time
	Secure   bool
	SameSite string
}

// farFutureExpiry is the fixed absolute expiry set on every cookie
// record, since renewal — not cookie expiry — governs token lifetime.
var farFutureExpiry = time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)

// CookieJar is the capability a host exposes for reading and writing
// individual cookies. A real browser host implements this over
// document.cookie; the in-process reference implementation used by this
// module's tests and demo keeps cookies in a map.
type CookieJar interface {
	SetCookie(name, value string, attrs CookieAttrs) error
	Cookie(name string) (string, bool, error)
	DeleteCookie(name string) error
}

// CookieBackend stores one cookie per token, path-scoped by the host,
// named "<storageKey>_<tokenKey>". Because cookies have no native "list
// all keys matching a prefix" operation, the backend maintains a small
// index cookie at storageKey itself (a comma-joined list of the subkeys
// currently live) so Keys() can enumerate — the keyed analogue of
// SecretBasedTokenRepository tracking its record under one fixed secret
// name, generalized here to many records under one fixed prefix.
type CookieBackend struct {
	jar        CookieJar
	storageKey string
	secure     bool
}

// NewCookieBackend wraps jar. secure controls whether written cookies
// carry the secure attribute; callers derive it from the host origin
// (HTTPS) unless Config.Secure overrides it.
func NewCookieBackend(jar CookieJar, storageKey string, secure bool) *CookieBackend {
	return &CookieBackend{jar: jar, storageKey: storageKey, secure: secure}
}

func (b *CookieBackend) cookieName(subkey string) string {
	return fmt.Sprintf("%s_%s", b.storageKey, subkey)
}

func (b *CookieBackend) attrs() CookieAttrs {
	sameSite := ""
	if b.secure {
		sameSite = "none"
	}
	return CookieAttrs{Expires: farFutureExpiry, Secure: b.secure, SameSite: sameSite}
}

func (b *CookieBackend) GetItem(subkey string) (string, bool, error) {
	return b.jar.Cookie(b.cookieName(subkey))
}

func (b *CookieBackend) SetItem(subkey, value string) error {
	if err := b.jar.SetCookie(b.cookieName(subkey), value, b.attrs()); err != nil {
		return err
	}
	return b.addToIndex(subkey)
}

func (b *CookieBackend) RemoveItem(subkey string) error {
	if err := b.jar.DeleteCookie(b.cookieName(subkey)); err != nil {
		return err
	}
	return b.removeFromIndex(subkey)
}

func (b *CookieBackend) Clear() error {
	keys, err := b.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.jar.DeleteCookie(b.cookieName(k)); err != nil {
			return err
		}
	}
	return b.jar.DeleteCookie(b.storageKey)
}

func (b *CookieBackend) Keys() ([]string, error) {
	raw, ok, err := b.jar.Cookie(b.storageKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	keys := strings.Split(raw, ",")
	sort.Strings(keys)
	return keys, nil
}

func (b *CookieBackend) addToIndex(subkey string) error {
	keys, err := b.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == subkey {
			return nil
		}
	}
	keys = append(keys, subkey)
	sort.Strings(keys)
	return b.jar.SetCookie(b.storageKey, strings.Join(keys, ","), b.attrs())
}

func (b *CookieBackend) removeFromIndex(subkey string) error {
	keys, err := b.Keys()
	if err != nil {
		return err
	}
	kept := keys[:0]
	for _, k := range keys {
		if k != subkey {
			kept = append(kept, k)
		}
	}
	if len(kept) == 0 {
		return b.jar.DeleteCookie(b.storageKey)
	}
	return b.jar.SetCookie(b.storageKey, strings.Join(kept, ","), b.attrs())
}
