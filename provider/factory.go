package provider

import (
	"fmt"

	"relaychat/model"
)

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory function for creating any provider type.
// It dispatches on Config.Type:
//   - ProviderTypeOpenAI: OpenAI and OpenAI-compatible services (Groq, OpenRouter)
//   - ProviderTypeAnthropic: Anthropic Messages API
//   - ProviderTypeHuggingFace: HuggingFace Inference API
//   - ProviderTypeOllama: Local Ollama server
//   - ProviderTypeMock: offline demo adapter
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (e.g., invalid URL). A missing credential is not an
// error here; the adapter reports itself unavailable instead.
//
// Example:
//
//	p, err := provider.NewProvider(provider.Config{
//	    ID:        "groq",
//	    Type:      provider.ProviderTypeOpenAI,
//	    BaseURL:   "https://api.groq.com/openai/v1",
//	    Model:     "llama-3.3-70b-versatile",
//	    APIKey:    creds.Lookup("groq"),
//	    KeyPrefix: "gsk_",
//	})
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg)
	case ProviderTypeHuggingFace:
		return NewHuggingFaceProvider(cfg)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg)
	case ProviderTypeMock:
		return NewMockProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a factory ProviderType.
//
// Used when a provider entry leaves Type empty. OpenAI-compatible services
// share the OpenAI adapter:
//   - "openai", "groq", "openrouter" → ProviderTypeOpenAI
//   - "anthropic" → ProviderTypeAnthropic
//   - "huggingface" → ProviderTypeHuggingFace
//   - "ollama" → ProviderTypeOllama
//   - "mock", "demo" → ProviderTypeMock
//
// For unknown IDs, returns the ID cast as ProviderType (factory will error).
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "openai", "groq", "openrouter":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	case "huggingface":
		return ProviderTypeHuggingFace
	case "ollama":
		return ProviderTypeOllama
	case "mock", "demo":
		return ProviderTypeMock
	default:
		return ProviderType(id)
	}
}

// KeyPrefixFor returns the expected key prefix for a credential name.
// Unknown names get no prefix requirement.
func KeyPrefixFor(credential string) string {
	switch credential {
	case "openai":
		return "sk-"
	case "groq":
		return "gsk_"
	case "openrouter":
		return "sk-or-"
	case "anthropic":
		return "sk-ant-"
	case "huggingface":
		return "hf_"
	default:
		return ""
	}
}
