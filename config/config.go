package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"relaychat/model"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// DatabaseConfig describes where conversations are stored.
// An empty URL selects the local SQLite database in the data directory.
type DatabaseConfig struct {
	URL    string `toml:"url"`
	UserID string `toml:"user_id"`
}

// ProviderConfig is one configured text-generation backend.
// Each catalog model binds to exactly one entry by ID.
type ProviderConfig struct {
	ID            string `toml:"id"`
	Type          string `toml:"type"`
	Name          string `toml:"name"`
	BaseURL       string `toml:"base_url"`
	Model         string `toml:"model"`
	Credential    string `toml:"credential,omitempty"`
	HistoryWindow int    `toml:"history_window,omitempty"`
	Enabled       bool   `toml:"enabled"`
}

type UserConfig struct {
	DefaultModel  string                  `toml:"default_model"`
	FallbackModel string                  `toml:"fallback_model"`
	SystemPrompt  string                  `toml:"system_prompt,omitempty"`
	Database      DatabaseConfig          `toml:"database"`
	Providers     []ProviderConfig        `toml:"providers"`
	Models        []model.ModelDescriptor `toml:"models"`
}

type Config struct {
	DataDirectory string
	DefaultModel  string
	FallbackModel string
	SystemPrompt  string
	Database      DatabaseConfig
	Models        []model.ModelDescriptor

	// Providers may be changed at runtime by UpdateProviderField; after
	// Load, read entries through Provider or ProviderEntries.
	Providers  []ProviderConfig
	providerMu sync.RWMutex

	CredentialStore *CredentialStore

	// Warnings collected by Validate; shown once at startup, never fatal.
	Warnings []string
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Provider returns the provider entry with the given ID.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	c.providerMu.RLock()
	defer c.providerMu.RUnlock()
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// ProviderEntries returns a snapshot of the provider entries.
func (c *Config) ProviderEntries() []ProviderConfig {
	c.providerMu.RLock()
	defer c.providerMu.RUnlock()
	return slices.Clone(c.Providers)
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("RELAYCHAT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if dbURL := os.Getenv("RELAYCHAT_DATABASE_URL"); dbURL != "" {
		c.Database.URL = dbURL
	}
	if userID := os.Getenv("RELAYCHAT_USER_ID"); userID != "" {
		c.Database.UserID = userID
	}
}

func CheckDebug() bool {
	debug := os.Getenv("RELAYCHAT_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// Create debug log with secure permissions (0600 - may contain sensitive debug info)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (RELAYCHAT_DEBUG=%s) ===", os.Getenv("RELAYCHAT_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads the system and user configuration, applies environment
// overrides, loads credentials and validates the result.
func Load() (*Config, error) {
	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}
	if dataDir := os.Getenv("RELAYCHAT_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	creds := NewCredentialStore()
	if err := creds.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = creds

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyUserConfig(u *UserConfig) {
	c.DefaultModel = u.DefaultModel
	c.FallbackModel = u.FallbackModel
	c.SystemPrompt = u.SystemPrompt
	c.Database = u.Database
	c.Providers = u.Providers
	c.Models = u.Models

	if len(c.Providers) == 0 {
		c.Providers = DefaultProviders()
	}
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModelID
	}
	if c.FallbackModel == "" {
		c.FallbackModel = FallbackModelID
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
}
