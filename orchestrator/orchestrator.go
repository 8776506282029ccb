// Package orchestrator routes a user message to the provider bound to the
// selected model, tracks generation state, and derives conversation titles.
//
// The orchestrator never retries and never falls back on its own. Callers
// consult a FallbackPolicy with the returned error and decide whether to
// switch models and try once more.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"relaychat/catalog"
	"relaychat/config"
	"relaychat/model"
)

// State is the orchestrator's generation state.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateError      State = "error"
)

// ProviderSource resolves adapters by provider entry ID.
// provider.Registry satisfies it.
type ProviderSource interface {
	Get(id string) (model.Provider, bool)
	States() []model.ProviderState
}

// Orchestrator holds the selected model and the current generation state.
// It is safe for concurrent use; callers are expected to keep at most one
// Generate in flight.
type Orchestrator struct {
	catalog   *catalog.Catalog
	providers ProviderSource

	mu       sync.RWMutex
	selected model.ModelDescriptor
	state    State
	lastErr  error

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates an orchestrator with selectedID as the initial model. An
// unknown selectedID falls back to the catalog's first model.
func New(cat *catalog.Catalog, providers ProviderSource, selectedID string) *Orchestrator {
	selected, ok := cat.Get(selectedID)
	if !ok {
		selected = cat.Default()
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Orchestrator] Unknown model %q, starting with %s", selectedID, selected.ID)
		}
	}
	return &Orchestrator{
		catalog:   cat,
		providers: providers,
		selected:  selected,
		state:     StateIdle,
		subs:      make(map[int]chan Event),
	}
}

// Catalog returns the model catalog the orchestrator selects from.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	return o.catalog
}

// SelectedModel returns the currently selected model.
func (o *Orchestrator) SelectedModel() model.ModelDescriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.selected
}

// State returns the current generation state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// LastError returns the error of the last failed generation, or nil.
func (o *Orchestrator) LastError() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

// SwitchModel selects the model with the given ID. Availability is not
// checked: an unavailable model fails at the next Generate instead.
func (o *Orchestrator) SwitchModel(id string) error {
	d, ok := o.catalog.Get(id)
	if !ok {
		return &model.Error{Kind: model.KindModelNotFound, Detail: "unknown model " + id}
	}

	o.mu.Lock()
	o.selected = d
	state := o.state
	o.mu.Unlock()

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Orchestrator] Switched model to %s (provider %s)", d.ID, d.ProviderID)
	}
	o.publish(Event{State: state, Model: d.ID})
	return nil
}

// AvailableModels returns the catalog entries whose provider is registered
// and currently available, in catalog order. It is recomputed on every call.
func (o *Orchestrator) AvailableModels() []model.ModelDescriptor {
	all := o.catalog.All()
	available := make([]model.ModelDescriptor, 0, len(all))
	for _, d := range all {
		p, ok := o.providers.Get(d.ProviderID)
		if ok && p.IsAvailable() {
			available = append(available, d)
		}
	}
	return available
}

// ProviderStates reports the availability of every registered provider.
func (o *Orchestrator) ProviderStates() []model.ProviderState {
	return o.providers.States()
}

// ClearError returns the orchestrator to Idle after a failure.
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	if o.state != StateError {
		o.mu.Unlock()
		return
	}
	o.state = StateIdle
	o.lastErr = nil
	current := o.selected.ID
	o.mu.Unlock()

	o.publish(Event{State: StateIdle, Model: current})
}

// Generate sends message with history to the selected model's provider and
// returns the reply. Exactly one adapter call is made; failures are returned
// as *model.Error values and leave the orchestrator in StateError.
func (o *Orchestrator) Generate(ctx context.Context, message string, history []model.Message) (string, error) {
	o.ClearError()

	o.mu.Lock()
	selected := o.selected
	o.state = StateGenerating
	o.mu.Unlock()
	o.publish(Event{State: StateGenerating, Model: selected.ID})

	reply, err := o.generate(ctx, selected, message, history)

	o.mu.Lock()
	if err != nil {
		o.state = StateError
		o.lastErr = err
	} else {
		o.state = StateIdle
		o.lastErr = nil
	}
	o.mu.Unlock()

	if err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Orchestrator] Generation with %s failed: %v", selected.ID, err)
		}
		o.publish(Event{State: StateError, Kind: model.KindOf(err), Model: selected.ID, Err: err})
		return "", err
	}
	o.publish(Event{State: StateIdle, Model: selected.ID})
	return reply, nil
}

func (o *Orchestrator) generate(ctx context.Context, selected model.ModelDescriptor, message string, history []model.Message) (string, error) {
	p, err := o.resolve(selected)
	if err != nil {
		return "", err
	}

	reply, err := p.Generate(ctx, message, history)
	if err != nil {
		var structured *model.Error
		if errors.As(err, &structured) {
			return "", err
		}
		return "", &model.Error{
			Kind:     model.KindGenerationFailed,
			Provider: p.ID(),
			Model:    selected.DisplayName,
			Detail:   err.Error(),
			Err:      err,
		}
	}
	return reply, nil
}

// resolve returns the selected model's adapter, or a structured error when it
// is missing or not configured. No network I/O happens here.
func (o *Orchestrator) resolve(selected model.ModelDescriptor) (model.Provider, error) {
	p, ok := o.providers.Get(selected.ProviderID)
	if !ok {
		return nil, &model.Error{
			Kind:     model.KindProviderNotAvailable,
			Provider: selected.ProviderID,
			Model:    selected.DisplayName,
		}
	}
	if !p.IsAvailable() {
		return nil, &model.Error{
			Kind:     model.KindProviderNotConfigured,
			Provider: selected.ProviderID,
			Model:    selected.DisplayName,
		}
	}
	return p, nil
}
