package provider

import (
	"relaychat/config"
)

// InitializeProviders creates ALL provider instances for the application.
//
// This function is the single entry point for provider initialization.
// It handles:
//   - Creating one adapter per configured provider entry
//   - Binding each adapter to its live credential in the credential store
//   - Mapping provider IDs to provider types when Type is empty
//   - Graceful degradation (logs warnings but doesn't fail)
//
// Disabled entries are still registered: availability, not registration,
// decides whether their models can be used. The mock entry is always
// registered so the fallback model has an adapter.
func InitializeProviders(cfg *config.Config) *Registry {
	registry := NewRegistry()

	for _, providerCfg := range cfg.ProviderEntries() {
		providerType := ProviderType(providerCfg.Type)
		if providerType == "" {
			providerType = MapProviderIDToType(providerCfg.ID)
		}

		pc := Config{
			ID:            providerCfg.ID,
			Type:          providerType,
			BaseURL:       providerCfg.BaseURL,
			Model:         providerCfg.Model,
			SystemPrompt:  cfg.SystemPrompt,
			HistoryWindow: providerCfg.HistoryWindow,
			Enabled:       providerCfg.Enabled,
		}
		if providerCfg.Credential != "" {
			pc.APIKey = credentialLookup(cfg, providerCfg)
			pc.KeyPrefix = KeyPrefixFor(providerCfg.Credential)
		}

		p, err := NewProvider(pc)
		if err != nil {
			// Log warning but don't fail - allow app to start
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[Provider] Warning: failed to initialize provider %s: %v", providerCfg.ID, err)
			}
			continue
		}

		registry.Register(providerCfg.ID, p)
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] Initialized provider: %s (type: %s, available: %v)", providerCfg.ID, providerType, p.IsAvailable())
		}
	}

	if _, ok := registry.Get("mock"); !ok {
		registry.Register("mock", NewMockProvider(Config{ID: "mock"}))
	}

	return registry
}

// credentialLookup returns a live credential reader. A disabled entry reads
// as having no credential, so toggling "enabled" takes effect immediately.
func credentialLookup(cfg *config.Config, entry config.ProviderConfig) func() string {
	lookup := cfg.CredentialStore.Lookup(entry.Credential)
	id := entry.ID
	return func() string {
		if current, ok := cfg.Provider(id); ok && !current.Enabled {
			return ""
		}
		return lookup()
	}
}
