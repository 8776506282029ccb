package provider

import (
	"sort"
	"sync"

	"relaychat/model"
)

// Registry maps provider entry IDs ("openai", "groq", ...) to adapters.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]model.Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]model.Provider)}
}

// Register adds or replaces the adapter for id.
func (r *Registry) Register(id string, p model.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[id] = p
}

// Get returns the adapter registered for id.
func (r *Registry) Get(id string) (model.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the registered provider IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// States reports the current availability of every registered adapter,
// keyed by the provider entry ID.
func (r *Registry) States() []model.ProviderState {
	ids := r.IDs()
	states := make([]model.ProviderState, 0, len(ids))
	for _, id := range ids {
		p, ok := r.Get(id)
		if !ok {
			continue
		}
		states = append(states, model.ProviderState{ProviderID: id, IsAvailable: p.IsAvailable()})
	}
	return states
}
