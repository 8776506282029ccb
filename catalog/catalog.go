// Package catalog enumerates the user-selectable models.
//
// A model is a named configuration bound to exactly one provider entry.
// Adding a model is a configuration change (a [[models]] table in
// config.toml); the orchestrator never needs to change.
package catalog

import (
	"fmt"

	"github.com/sahilm/fuzzy"

	"relaychat/model"
)

// Builtin returns the default model set, one per built-in provider.
func Builtin() []model.ModelDescriptor {
	return []model.ModelDescriptor{
		{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", ProviderID: "openai", IsFree: false},
		{ID: "llama-3.3-70b", DisplayName: "Llama 3.3 70B (Groq)", ProviderID: "groq", IsFree: true},
		{ID: "llama-3.2-3b", DisplayName: "Llama 3.2 3B (OpenRouter)", ProviderID: "openrouter", IsFree: true},
		{ID: "claude-haiku", DisplayName: "Claude 3.5 Haiku", ProviderID: "anthropic", IsFree: false},
		{ID: "mistral-7b", DisplayName: "Mistral 7B Instruct", ProviderID: "huggingface", IsFree: true},
		{ID: "llama3.1-local", DisplayName: "Llama 3.1 (Ollama)", ProviderID: "ollama", IsFree: true},
		{ID: "demo", DisplayName: "Demo Assistant", ProviderID: "mock", IsFree: true},
	}
}

// Catalog is an immutable, ordered set of model descriptors.
type Catalog struct {
	models []model.ModelDescriptor
	byID   map[string]int
}

// New builds a catalog. A later descriptor with an existing ID replaces the
// earlier one in place. Entries without an ID or provider are rejected.
func New(descriptors []model.ModelDescriptor) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("model entry with empty id")
		}
		if d.ProviderID == "" {
			return nil, fmt.Errorf("model %s has no provider", d.ID)
		}
		if d.DisplayName == "" {
			d.DisplayName = d.ID
		}
		if i, ok := c.byID[d.ID]; ok {
			c.models[i] = d
			continue
		}
		c.byID[d.ID] = len(c.models)
		c.models = append(c.models, d)
	}
	if len(c.models) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return c, nil
}

// FromConfig overlays configured models on the built-in set.
func FromConfig(configured []model.ModelDescriptor) (*Catalog, error) {
	all := append(Builtin(), configured...)
	return New(all)
}

// All returns every model in catalog order. The slice is a copy.
func (c *Catalog) All() []model.ModelDescriptor {
	out := make([]model.ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Get looks up a model by ID.
func (c *Catalog) Get(id string) (model.ModelDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.ModelDescriptor{}, false
	}
	return c.models[i], true
}

// DisplayName returns the model's display name, or the id itself when unknown.
func (c *Catalog) DisplayName(id string) string {
	if d, ok := c.Get(id); ok {
		return d.DisplayName
	}
	return id
}

// Find fuzzy-matches query against model ids and display names, best match first.
func (c *Catalog) Find(query string) []model.ModelDescriptor {
	if query == "" {
		return c.All()
	}
	if d, ok := c.Get(query); ok {
		return []model.ModelDescriptor{d}
	}

	matches := fuzzy.FindFrom(query, searchSource(c.models))
	out := make([]model.ModelDescriptor, 0, len(matches))
	for _, m := range matches {
		out = append(out, c.models[m.Index])
	}
	return out
}

// searchSource adapts descriptors to fuzzy.Source, matching on "id display name".
type searchSource []model.ModelDescriptor

func (s searchSource) String(i int) string {
	return s[i].ID + " " + s[i].DisplayName
}

func (s searchSource) Len() int { return len(s) }

// Default returns the first model in catalog order.
func (c *Catalog) Default() model.ModelDescriptor {
	return c.models[0]
}
