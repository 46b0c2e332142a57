package storage

// CustomProvider is the minimal shape a caller-supplied custom backend
// must implement: getItem/setItem, with removeItem optional.
// CustomBackend wraps whatever the caller passes in verbatim; errors
// from the underlying provider are returned unchanged, never wrapped or
// swallowed.
type CustomProvider interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
}

// CustomRemover is an optional capability a CustomProvider may also
// implement.
type CustomRemover interface {
	RemoveItem(key string) error
}

// CustomClearer is an optional capability a CustomProvider may also
// implement.
type CustomClearer interface {
	Clear() error
}

// CustomBackend adapts a caller-supplied CustomProvider to Backend.
type CustomBackend struct {
	provider CustomProvider
}

// NewCustomBackend wraps provider verbatim.
func NewCustomBackend(provider CustomProvider) *CustomBackend {
	return &CustomBackend{provider: provider}
}

func (b *CustomBackend) GetItem(key string) (string, bool, error) {
	return b.provider.GetItem(key)
}

func (b *CustomBackend) SetItem(key, value string) error {
	return b.provider.SetItem(key, value)
}

// RemoveItem delegates to the provider's RemoveItem when it implements
// CustomRemover; otherwise it degrades to writing an empty value, since
// removeItem is only an optional capability of a custom provider.
func (b *CustomBackend) RemoveItem(key string) error {
	if r, ok := b.provider.(CustomRemover); ok {
		return r.RemoveItem(key)
	}
	return b.provider.SetItem(key, "")
}

func (b *CustomBackend) Clear() error {
	if c, ok := b.provider.(CustomClearer); ok {
		return c.Clear()
	}
	return nil
}
