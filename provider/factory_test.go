package provider

import (
	"sync"
	"testing"

	"relaychat/config"
	"relaychat/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		expectNil   bool
	}{
		{
			name: "ollama provider with defaults",
			config: Config{
				Type: ProviderTypeOllama,
			},
		},
		{
			name: "ollama provider with custom config",
			config: Config{
				Type:    ProviderTypeOllama,
				BaseURL: "http://localhost:11434",
				Model:   "llama3.1",
				Enabled: true,
			},
		},
		{
			name: "openai provider",
			config: Config{
				Type:    ProviderTypeOpenAI,
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
				APIKey:  func() string { return "sk-test-key-123456" },
			},
		},
		{
			name: "groq via openai adapter",
			config: Config{
				ID:      "groq",
				Type:    ProviderTypeOpenAI,
				BaseURL: "https://api.groq.com/openai/v1",
				Model:   "llama-3.3-70b-versatile",
			},
		},
		{
			name: "anthropic provider",
			config: Config{
				Type:  ProviderTypeAnthropic,
				Model: "claude-3-5-haiku-latest",
			},
		},
		{
			name: "huggingface provider",
			config: Config{
				Type: ProviderTypeHuggingFace,
			},
		},
		{
			name: "mock provider",
			config: Config{
				Type: ProviderTypeMock,
			},
		},
		{
			name: "unknown provider type",
			config: Config{
				Type:    ProviderType("unknown"),
				BaseURL: "http://localhost",
				Model:   "test",
			},
			expectError: true,
			expectNil:   true,
		},
		{
			name: "ollama with unparseable url",
			config: Config{
				Type:    ProviderTypeOllama,
				BaseURL: "localhost",
			},
			expectError: true,
			expectNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)

			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if tt.expectNil && provider != nil {
				t.Error("expected nil provider, got non-nil")
			}
			if !tt.expectNil && provider == nil {
				t.Error("expected non-nil provider, got nil")
			}
		})
	}
}

// TestFactoryReturnsConcreteTypes verifies that the factory dispatches to the right adapter
func TestFactoryReturnsConcreteTypes(t *testing.T) {
	tests := []struct {
		typ  ProviderType
		want string
	}{
		{ProviderTypeOpenAI, "*provider.OpenAIProvider"},
		{ProviderTypeAnthropic, "*provider.AnthropicProvider"},
		{ProviderTypeHuggingFace, "*provider.HuggingFaceProvider"},
		{ProviderTypeOllama, "*provider.OllamaProvider"},
		{ProviderTypeMock, "*provider.MockProvider"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			p, err := NewProvider(Config{Type: tt.typ})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var ok bool
			switch tt.typ {
			case ProviderTypeOpenAI:
				_, ok = p.(*OpenAIProvider)
			case ProviderTypeAnthropic:
				_, ok = p.(*AnthropicProvider)
			case ProviderTypeHuggingFace:
				_, ok = p.(*HuggingFaceProvider)
			case ProviderTypeOllama:
				_, ok = p.(*OllamaProvider)
			case ProviderTypeMock:
				_, ok = p.(*MockProvider)
			}
			if !ok {
				t.Errorf("expected %s, got %T", tt.want, p)
			}
		})
	}
}

func TestMapProviderIDToType(t *testing.T) {
	tests := map[string]ProviderType{
		"openai":      ProviderTypeOpenAI,
		"groq":        ProviderTypeOpenAI,
		"openrouter":  ProviderTypeOpenAI,
		"anthropic":   ProviderTypeAnthropic,
		"huggingface": ProviderTypeHuggingFace,
		"ollama":      ProviderTypeOllama,
		"mock":        ProviderTypeMock,
		"custom":      ProviderType("custom"),
	}
	for id, want := range tests {
		if got := MapProviderIDToType(id); got != want {
			t.Errorf("MapProviderIDToType(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestProviderIDIncludesModel(t *testing.T) {
	p, err := NewProvider(Config{ID: "groq", Type: ProviderTypeOpenAI, Model: "llama-3.3-70b-versatile"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.ID(); got != "groq/llama-3.3-70b-versatile" {
		t.Errorf("ID() = %q", got)
	}
}

func TestInitializeProviders(t *testing.T) {
	creds := config.NewCredentialStoreFrom(map[string]string{
		"openai": "sk-live-abcdefghijkl",
	})
	cfg := &config.Config{
		Providers:       config.DefaultProviders(),
		CredentialStore: creds,
	}

	registry := InitializeProviders(cfg)

	for _, id := range []string{"openai", "groq", "openrouter", "anthropic", "huggingface", "ollama", "mock"} {
		if _, ok := registry.Get(id); !ok {
			t.Errorf("provider %s not registered", id)
		}
	}

	available := map[string]bool{}
	for _, s := range registry.States() {
		available[s.ProviderID] = s.IsAvailable
	}
	if !available["openai"] {
		t.Error("openai should be available with a valid key")
	}
	if available["groq"] {
		t.Error("groq should be unavailable without a key")
	}
	if available["ollama"] {
		t.Error("ollama is disabled by default")
	}
	if !available["mock"] {
		t.Error("mock must always be available")
	}

	// Credential changes are visible on the next check.
	creds.Set("groq", "gsk_abcdefghijklmnop")
	p, _ := registry.Get("groq")
	if !p.IsAvailable() {
		t.Error("groq should become available after adding a key")
	}
	creds.Delete("openai")
	p, _ = registry.Get("openai")
	if p.IsAvailable() {
		t.Error("openai should become unavailable after removing its key")
	}
}

func TestInitializeProvidersAlwaysRegistersMock(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderConfig{
			{ID: "openai", Type: "openai", Credential: "openai", Enabled: true},
		},
		CredentialStore: config.NewCredentialStore(),
	}
	registry := InitializeProviders(cfg)
	p, ok := registry.Get("mock")
	if !ok {
		t.Fatal("mock not registered")
	}
	var _ model.Provider = p
}

func TestDisablingProviderWhileCheckingAvailability(t *testing.T) {
	cfg := &config.Config{
		DataDirectory: t.TempDir(),
		Providers:     config.DefaultProviders(),
		CredentialStore: config.NewCredentialStoreFrom(map[string]string{
			"groq": "gsk_abcdefghijklmnop",
		}),
	}
	registry := InitializeProviders(cfg)
	p, ok := registry.Get("groq")
	if !ok {
		t.Fatal("groq not registered")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			enabled := "false"
			if i%2 == 1 {
				enabled = "true"
			}
			if err := cfg.UpdateProviderField("groq", "enabled", enabled); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		p.IsAvailable()
		registry.States()
	}
	wg.Wait()

	if err := cfg.UpdateProviderField("groq", "enabled", "false"); err != nil {
		t.Fatal(err)
	}
	if p.IsAvailable() {
		t.Error("disabled provider still available")
	}
	if err := cfg.UpdateProviderField("groq", "enabled", "true"); err != nil {
		t.Fatal(err)
	}
	if !p.IsAvailable() {
		t.Error("re-enabled provider unavailable")
	}
}
