package api

import (
	"maps"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Action is the symbolic outcome a node reports after one invocation.
// It carries no payload; the graph uses it only for transition lookup.
type Action string

const (
	// DefaultAction is substituted for an empty action before transition
	// lookup, so nodes that don't branch can return "" from Post.
	DefaultAction Action = "default"

	// End is the terminal sentinel. A node returning End, or a transition
	// whose target is End, halts the run cleanly.
	End Action = "end"
)

// Terminal is the reserved transition target that halts the run.
// It is the same identifier as the End action, used in target position.
const Terminal = string(End)

// Shared is the mutable, run-scoped store visible to every node in one
// graph execution. Exactly one Shared instance exists per top-level run;
// nested graphs and batch sub-runs receive the same instance by reference.
//
// The default implementation (NewShared) is not safe for concurrent use:
// under the engine's sequential execution model there is a single writer
// at a time. Callers enabling parallel batch runs must either confine
// writes to disjoint keys or use NewSyncedShared.
type Shared interface {
	// Get returns the value stored under key, and whether it was present.
	Get(key string) (any, bool)

	// Set stores value under key, overwriting any prior value.
	Set(key string, value any)

	// Delete removes key from the store. Deleting an absent key is a no-op.
	Delete(key string)

	// Len returns the number of keys currently stored.
	Len() int

	// Snapshot returns a shallow copy of the current contents.
	Snapshot() map[string]any
}

// NewShared returns a Shared backed by a plain map, optionally pre-seeded.
// The seed map is copied, not retained.
func NewShared(seed map[string]any) Shared {
	s := &mapShared{data: make(map[string]any, len(seed))}
	maps.Copy(s.data, seed)
	return s
}

type mapShared struct {
	data map[string]any
}

func (s *mapShared) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *mapShared) Set(key string, value any) { s.data[key] = value }

func (s *mapShared) Delete(key string) { delete(s.data, key) }

func (s *mapShared) Len() int { return len(s.data) }

func (s *mapShared) Snapshot() map[string]any {
	out := make(map[string]any, len(s.data))
	maps.Copy(out, s.data)
	return out
}

// NewSyncedShared returns a Shared guarded by an RWMutex. Use it when
// enabling parallel batch-flow runs whose sub-graphs write to the store
// concurrently.
func NewSyncedShared(seed map[string]any) Shared {
	s := &syncedShared{data: make(map[string]any, len(seed))}
	maps.Copy(s.data, seed)
	return s
}

type syncedShared struct {
	mu   sync.RWMutex
	data map[string]any
}

func (s *syncedShared) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *syncedShared) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *syncedShared) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *syncedShared) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *syncedShared) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	maps.Copy(out, s.data)
	return out
}

// Params is the immutable, per-scope configuration bundle handed to a node
// or to one batch element. Nodes must treat it as read-only; the engine
// never mutates a Params value after handing it out, and deriving a new
// bundle goes through Clone or Merge.
type Params map[string]any

// Clone returns a shallow copy of p. A nil receiver yields an empty,
// non-nil Params.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Merge returns a new Params with overlay's entries applied over p.
// Neither input is modified.
func (p Params) Merge(overlay Params) Params {
	out := p.Clone()
	maps.Copy(out, overlay)
	return out
}

// Decode translates p into a typed struct (or map) using mapstructure.
// out must be a pointer.
func (p Params) Decode(out any) error {
	return mapstructure.Decode(map[string]any(p), out)
}
