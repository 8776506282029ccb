package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// credentialEnvVars maps credential names to the environment variables that
// override them. Values from the environment (or a .env file) take precedence
// over credentials.toml.
var credentialEnvVars = map[string]string{
	"openai":      "OPENAI_API_KEY",
	"groq":        "GROQ_API_KEY",
	"openrouter":  "OPENROUTER_API_KEY",
	"anthropic":   "ANTHROPIC_API_KEY",
	"huggingface": "HUGGINGFACE_API_KEY",
	"database":    "DATABASE_KEY",
}

// CredentialStore holds named API credentials (credential name → key).
//
// Reads are live: adapters call Get on every availability check, so a key set
// or removed at runtime is visible on the next call.
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]string
}

// NewCredentialStore creates an empty credential store
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		credentials: make(map[string]string),
	}
}

// NewCredentialStoreFrom creates a store pre-populated with creds (tests, tooling).
func NewCredentialStoreFrom(creds map[string]string) *CredentialStore {
	c := NewCredentialStore()
	for k, v := range creds {
		c.credentials[k] = v
	}
	return c
}

// Load reads credentials.toml from dataDir, then applies environment
// overrides. A .env file in the working directory or dataDir is loaded first.
func (c *CredentialStore) Load(dataDir string) error {
	// Missing .env files are fine.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(dataDir, ".env"))

	creds, err := loadPlainText(dataDir)
	if err != nil {
		return err
	}

	for name, envVar := range credentialEnvVars {
		if v := os.Getenv(envVar); v != "" {
			creds[name] = v
		}
	}

	c.mu.Lock()
	c.credentials = creds
	c.mu.Unlock()

	if Debug && DebugLog != nil {
		DebugLog.Printf("[Credentials] Loaded %d credential(s): %v", len(creds), c.Names())
	}
	return nil
}

// Save writes credentials to dataDir/credentials.toml with 0600 permissions.
func (c *CredentialStore) Save(dataDir string) error {
	c.mu.RLock()
	snapshot := make(map[string]string, len(c.credentials))
	for k, v := range c.credentials {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	return savePlainText(dataDir, snapshot)
}

// Get retrieves a credential by name
func (c *CredentialStore) Get(name string) string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credentials[name]
}

// Set stores a credential
func (c *CredentialStore) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials[name] = value
}

// Delete removes a credential
func (c *CredentialStore) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.credentials, name)
}

// Names returns the sorted names of all stored credentials (never the values).
func (c *CredentialStore) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.credentials))
	for k := range c.credentials {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a getter bound to one credential name.
func (c *CredentialStore) Lookup(name string) func() string {
	return func() string { return c.Get(name) }
}

// credentialsPath returns the path to the plain text credentials file
func credentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.toml")
}

type credentialsFile struct {
	Credentials map[string]string `toml:"credentials"`
}

// loadPlainText loads credentials from plain text TOML file
func loadPlainText(dataDir string) (map[string]string, error) {
	path := credentialsPath(dataDir)

	if !FileExists(path) {
		return make(map[string]string), nil
	}

	var cf credentialsFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	creds := make(map[string]string, len(cf.Credentials))
	for k, v := range cf.Credentials {
		if v != "" {
			creds[k] = v
		}
	}
	return creds, nil
}

// savePlainText saves credentials to plain text TOML file with 0600 permissions
func savePlainText(dataDir string, creds map[string]string) error {
	path := credentialsPath(dataDir)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(credentialsFile{Credentials: creds}); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	return nil
}
