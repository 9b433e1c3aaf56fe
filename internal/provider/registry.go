package provider

import (
	"fmt"
	"sync"
)

// Factory constructs an Adapter from a shared Context. Registered at
// process start, invoked lazily by Build.
type Factory func(ctx Context) Adapter

// Registry holds the ordered list of adapter constructors and a
// per-id enable/disable flag (§4.C). Registration happens once
// at process start; runtime access is read-mostly and guarded by a
// RWMutex because enable/disable can be triggered from an HTTP
// handler or the CLI concurrently with fan-out reading ActiveIDs.
type Registry struct {
	mu        sync.RWMutex
	ids       []string
	factories map[string]Factory
	enabled   map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		enabled:   make(map[string]bool),
	}
}

// Register adds an adapter constructor under id, preserving
// registration order for ListIDs/ActiveIDs. Registering the same id
// twice replaces the factory but keeps its original position.
func (r *Registry) Register(id string, factory Factory, enabledByDefault bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; !exists {
		r.ids = append(r.ids, id)
	}
	r.factories[id] = factory
	r.enabled[id] = enabledByDefault
}

// ListIDs returns every registered id in registration order.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Build constructs a fresh Adapter instance for id.
func (r *Registry) Build(id string, ctx Context) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", id)
	}
	return factory(ctx), nil
}

// SetEnabled toggles whether id participates in ActiveIDs.
func (r *Registry) SetEnabled(id string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled[id] = enabled
}

// IsEnabled reports id's current enable state; unregistered ids are
// reported disabled.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[id]
}

// ActiveIDs computes the active adapter set per §4.C: start from
// all ids, intersect with include if non-empty, subtract exclude,
// subtract disabled. Registration order is preserved throughout.
func (r *Registry) ActiveIDs(include, exclude []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	includeSet := toSet(include)
	excludeSet := toSet(exclude)

	out := make([]string, 0, len(r.ids))
	for _, id := range r.ids {
		if !r.enabled[id] {
			continue
		}
		if len(includeSet) > 0 && !includeSet[id] {
			continue
		}
		if excludeSet[id] {
			continue
		}
		out = append(out, id)
	}
	return out
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
