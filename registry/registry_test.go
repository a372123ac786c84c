package registry

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	freed atomic.Bool
}

func (f *fakeHandle) Free() {
	f.freed.Store(true)
}

func TestRegisterAndGet(t *testing.T) {
	r := New(Config{})
	h := &fakeHandle{}

	r.Register("orders", h)

	got, ok := r.Get("orders")
	require.True(t, ok)
	assert.Same(t, h, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegister_DuplicateNamePanics(t *testing.T) {
	r := New(Config{})
	r.Register("orders", &fakeHandle{})

	assert.Panics(t, func() {
		r.Register("orders", &fakeHandle{})
	})
}

func TestUnregister(t *testing.T) {
	r := New(Config{})
	r.Register("orders", &fakeHandle{})

	assert.True(t, r.Unregister("orders"))
	assert.False(t, r.Unregister("orders"))

	_, ok := r.Get("orders")
	assert.False(t, ok)
}

func TestFreeAll(t *testing.T) {
	r := New(Config{Shards: 4})
	handles := make([]*fakeHandle, 0, 50)
	for i := 0; i < 50; i++ {
		h := &fakeHandle{}
		handles = append(handles, h)
		r.Register(keyFor(i), h)
	}

	r.FreeAll()

	for _, h := range handles {
		assert.True(t, h.freed.Load())
	}
	_, ok := r.Get(keyFor(0))
	assert.False(t, ok)
}

func TestConfig_ShardsRoundedToPowerOfTwo(t *testing.T) {
	r := New(Config{Shards: 5})
	assert.Equal(t, 8, len(r.shards))
}

func keyFor(i int) string {
	return fmt.Sprintf("domain-%d", i)
}
