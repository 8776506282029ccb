package model

import (
	"context"
)

// Provider abstracts one text-generation backend (OpenAI, Anthropic,
// HuggingFace, Ollama, the offline mock) behind a uniform contract.
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations import model, and the orchestrator
// uses the interface without importing concrete adapters.
type Provider interface {
	// ID returns a stable identifier for the backing service and model,
	// e.g. "openai/gpt-4o-mini".
	ID() string

	// IsAvailable reports whether the provider is locally configured
	// (credential present and well-formed). It never performs network I/O.
	IsAvailable() bool

	// Generate sends message with the trailing history and returns the
	// trimmed, non-empty reply. It makes a single attempt; failures are
	// returned as *Error values whenever the condition can be classified.
	Generate(ctx context.Context, message string, history []Message) (string, error)
}

// ProviderState is the availability snapshot of one provider, computed on demand.
type ProviderState struct {
	ProviderID  string
	IsAvailable bool
}

// ModelDescriptor is a static, user-selectable catalog entry bound to exactly
// one provider configuration.
type ModelDescriptor struct {
	ID          string `toml:"id"`
	DisplayName string `toml:"display_name"`
	ProviderID  string `toml:"provider"`
	IsFree      bool   `toml:"free"`
}

// CostTier returns a short label for the model's pricing class.
func (d ModelDescriptor) CostTier() string {
	if d.IsFree {
		return "free"
	}
	return "paid"
}
