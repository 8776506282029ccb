// Package provider implements the text-generation adapters.
//
// relaychat supports several interchangeable backends (OpenAI-compatible APIs,
// Anthropic, HuggingFace Inference, a local Ollama server, and an offline
// demo mock) through the model.Provider interface. The orchestrator and
// chat session stay provider-agnostic: adding a provider means implementing
// the interface and registering an entry, nothing else changes.
//
// # Contract
//
// Every adapter:
//   - reports availability from local configuration only (IsAvailable never
//     touches the network)
//   - fails with model.KindNotConfigured before any I/O when its credential
//     is missing or malformed
//   - makes exactly one attempt per Generate call (SDK retries are disabled)
//   - sends a fixed system instruction, the last K history messages in
//     chronological order, then the new message
//   - maps vendor failures to structured model.Error kinds (429 →
//     RateLimited, 404 → ModelNotFound, 503 → Unavailable, 401/403 →
//     InvalidCredential, empty text → MalformedResponse)
//
// # Architecture
//
//   - model.Provider defines the contract (interface)
//   - provider.OpenAIProvider serves OpenAI, Groq and OpenRouter
//   - provider.AnthropicProvider, provider.HuggingFaceProvider,
//     provider.OllamaProvider, provider.MockProvider
//   - provider.NewProvider() factory creates adapters from config
//   - provider.InitializeProviders() builds the Registry for the app
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    ID:     "openai",
//	    Type:   provider.ProviderTypeOpenAI,
//	    Model:  "gpt-4o-mini",
//	    APIKey: creds.Lookup("openai"),
//	})
//	if err != nil {
//	    // handle error
//	}
//	reply, err := p.Generate(ctx, "Hello!", history)
package provider

import (
	"net/http"
)

// Note: The Provider interface is defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the adapter implementation.
type ProviderType string

const (
	ProviderTypeOpenAI      ProviderType = "openai"
	ProviderTypeAnthropic   ProviderType = "anthropic"
	ProviderTypeHuggingFace ProviderType = "huggingface"
	ProviderTypeOllama      ProviderType = "ollama"
	ProviderTypeMock        ProviderType = "mock"
)

// Default history windows (K) per adapter type.
const (
	DefaultOpenAIHistory      = 5
	DefaultAnthropicHistory   = 5
	DefaultHuggingFaceHistory = 3
	DefaultOllamaHistory      = 4
)

// DefaultSystemInstruction is used when Config.SystemPrompt is empty.
const DefaultSystemInstruction = "You are a helpful, concise assistant in a chat app."

// Config holds adapter configuration.
type Config struct {
	// ID is the provider entry id the registry and catalog use (e.g. "groq").
	ID string

	Type    ProviderType
	BaseURL string
	Model   string

	// APIKey returns the current credential. It is called on every
	// availability check so credential changes apply immediately.
	APIKey func() string

	// KeyPrefix is the vendor's key prefix used for syntactic validation
	// ("sk-", "hf_", ...). Empty accepts any well-formed key.
	KeyPrefix string

	SystemPrompt  string
	HistoryWindow int

	// Enabled gates local adapters that need no credential (Ollama).
	Enabled bool

	// HTTPClient overrides the transport (tests). Nil uses the default client.
	HTTPClient *http.Client
}

func (c Config) systemPrompt() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return DefaultSystemInstruction
}

func (c Config) historyWindow(def int) int {
	if c.HistoryWindow > 0 {
		return c.HistoryWindow
	}
	return def
}

func (c Config) apiKey() string {
	if c.APIKey == nil {
		return ""
	}
	return c.APIKey()
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
