package config

import (
	"fmt"
)

// UpdateProviderField updates a single provider setting and persists it.
//
// Fields:
//   - "apikey": stores (or with an empty value removes) the provider's credential
//   - "enabled": "true" or "false"
//
// Credential changes apply to the live CredentialStore, so availability
// reflects them on the next check without a restart.
func (c *Config) UpdateProviderField(providerID, fieldName, value string) error {
	entry, ok := c.Provider(providerID)
	if !ok {
		return fmt.Errorf("unknown provider: %s", providerID)
	}

	switch fieldName {
	case "apikey":
		if entry.Credential == "" {
			return fmt.Errorf("provider %s does not use a credential", providerID)
		}
		if value == "" {
			c.CredentialStore.Delete(entry.Credential)
		} else {
			c.CredentialStore.Set(entry.Credential, value)
		}
		if err := c.CredentialStore.Save(c.DataDir()); err != nil {
			return fmt.Errorf("failed to persist credentials: %w", err)
		}
		return nil

	case "enabled":
		enabled := value == "true"
		c.providerMu.Lock()
		for i := range c.Providers {
			if c.Providers[i].ID == providerID {
				c.Providers[i].Enabled = enabled
			}
		}
		c.providerMu.Unlock()

	default:
		return fmt.Errorf("unknown field for %s: %s", providerID, fieldName)
	}

	if err := SaveUserConfig(c.userConfig(), c.DataDir()); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (c *Config) userConfig() *UserConfig {
	return &UserConfig{
		DefaultModel:  c.DefaultModel,
		FallbackModel: c.FallbackModel,
		SystemPrompt:  c.SystemPrompt,
		Database:      c.Database,
		Providers:     c.ProviderEntries(),
		Models:        c.Models,
	}
}

// getProviderDisplayName returns the display name for a provider
func getProviderDisplayName(p ProviderConfig) string {
	if p.Name != "" {
		return p.Name
	}
	switch p.ID {
	case "openai":
		return "OpenAI"
	case "openrouter":
		return "OpenRouter"
	case "anthropic":
		return "Anthropic"
	case "huggingface":
		return "HuggingFace"
	case "ollama":
		return "Ollama"
	default:
		return p.ID
	}
}

// DisplayName returns the user-facing name of the provider entry.
func (p ProviderConfig) DisplayName() string {
	return getProviderDisplayName(p)
}
