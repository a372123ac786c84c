// Package registry provides a sharded, named collection of hazard domains.
// It exists for processes that manage many independently-reclaimed shared
// cells and would otherwise need to thread a *hazard.Domain[T] by hand to
// every call site that touches one of them; Registry is an explicit,
// caller-held handle, never a package-level global.
package registry

import (
	"fmt"
	"runtime"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/fmstephe/flib/fmath"
)

// Handle is satisfied by *hazard.Domain[T] for any payload type T. Registry
// stores handles behind this interface so a single Registry can hold domains
// for more than one payload type; Free is the only operation the Registry
// needs, and it doesn't depend on T.
type Handle interface {
	Free()
}

// Config controls the construction of a Registry. The zero value is valid;
// every field has a lazily-computed default.
type Config struct {
	// Shards sets the number of internal shards used to reduce lock
	// contention across concurrent Register/Get calls.
	//
	// Shards must be a power of two; a non-power-of-two value is rounded
	// up. <= 0 selects runtime.NumCPU(), rounded up.
	Shards int
}

func (c *Config) getShards() int {
	if c.Shards <= 0 {
		c.Shards = runtime.NumCPU()
	}
	return int(fmath.NxtPowerOfTwo(int64(c.Shards)))
}

// Registry is a sharded map from domain name to Handle. A Registry is safe
// for concurrent use.
type Registry struct {
	indexMask uint64
	shards    []shard
}

type shard struct {
	mu      sync.Mutex
	handles map[string]Handle
}

// New constructs a Registry using the given Config.
func New(config Config) *Registry {
	shardCount := config.getShards()

	shards := make([]shard, shardCount)
	for i := range shards {
		shards[i] = shard{handles: make(map[string]Handle)}
	}

	return &Registry{
		indexMask: uint64(shardCount - 1),
		shards:    shards,
	}
}

func (r *Registry) shardFor(name string) *shard {
	hash := xxhash.Sum64String(name)
	idx := hash & r.indexMask
	return &r.shards[idx]
}

// Register adds handle under name. It panics if name is already registered,
// since a silent overwrite would leak the previous handle's bookkeeping.
func (r *Registry) Register(name string, handle Handle) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handles[name]; exists {
		panic(fmt.Errorf("registry: domain %q is already registered", name))
	}
	s.handles[name] = handle
}

// Get returns the handle registered under name, and whether it was found.
func (r *Registry) Get(name string) (Handle, bool) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[name]
	return h, ok
}

// Unregister removes the handle registered under name, without freeing it.
// Returns whether a handle was found and removed.
func (r *Registry) Unregister(name string) bool {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[name]; !ok {
		return false
	}
	delete(s.handles, name)
	return true
}

// FreeAll calls Free on every registered handle and empties the Registry.
// FreeAll is not safe to call concurrently with Register/Get/Unregister.
func (r *Registry) FreeAll() {
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for name, h := range s.handles {
			h.Free()
			delete(s.handles, name)
		}
		s.mu.Unlock()
	}
}
