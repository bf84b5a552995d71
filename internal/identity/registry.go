package identity

import "sync"

// Registry maps identity keys to promises of materialized objects. One
// registry exists per top-level load operation; it is never shared across
// independent loads, so keys cannot collide between unrelated graphs and
// memory is bounded by a single load's object graph.
type Registry struct {
	mu       sync.Mutex
	promises map[string]*Promise
}

// NewRegistry creates an empty identity registry.
func NewRegistry() *Registry {
	return &Registry{promises: make(map[string]*Promise)}
}

// RegisterIfAbsent installs the candidate promise under key unless one is
// already present. It returns nil when the caller won the registration and
// now owns materialization for the key, or the existing promise when some
// earlier caller owns it. Exactly one caller per key ever observes nil.
func (r *Registry) RegisterIfAbsent(key string, candidate *Promise) *Promise {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.promises[key]; ok {
		return existing
	}
	r.promises[key] = candidate
	return nil
}

// Len reports how many identity keys this load has seen so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.promises)
}
