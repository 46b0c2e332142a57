package tokenstore

import "github.com/okta-compat/token-manager/storage"

// fakeJar is a minimal in-memory storage.CookieJar double used by tests
// that need a storage.KeyedBackend.
type fakeJar struct {
	cookies map[string]string
}

func newFakeJarForTest() *fakeJar {
	return &fakeJar{cookies: make(map[string]string)}
}

func (f *fakeJar) SetCookie(name, value string, _ storage.CookieAttrs) error {
	f.cookies[name] = value
	return nil
}

func (f *fakeJar) Cookie(name string) (string, bool, error) {
	v, ok := f.cookies[name]
	return v, ok, nil
}

func (f *fakeJar) DeleteCookie(name string) error {
	delete(f.cookies, name)
	return nil
}
