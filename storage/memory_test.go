package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryBackend_SetGetRemove(t *testing.T) {
	b := NewMemoryBackend()

	_, ok, err := b.GetItem("k")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, b.SetItem("k", "v"))
	v, ok, err := b.GetItem("k")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	assert.NoError(t, b.RemoveItem("k"))
	_, ok, err = b.GetItem("k")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackend_Clear(t *testing.T) {
	b := NewMemoryBackend()
	assert.NoError(t, b.SetItem("a", "1"))
	assert.NoError(t, b.SetItem("b", "2"))
	assert.NoError(t, b.Clear())

	_, ok, _ := b.GetItem("a")
	assert.False(t, ok)
	_, ok, _ = b.GetItem("b")
	assert.False(t, ok)
}
