package config

import (
	"fmt"
	"net/url"
	"strings"
)

// placeholderMarkers are substrings of values copied from docs or templates.
// Such values are treated as "not configured" rather than as errors.
var placeholderMarkers = []string{
	"your-api-key",
	"your_api_key",
	"yourapikey",
	"your-key",
	"api-key-here",
	"changeme",
	"replace-me",
	"replace_me",
	"xxxx",
	"todo",
	"example.com",
}

// IsPlaceholder reports whether v is empty or an obvious placeholder.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return true
	}
	lower := strings.ToLower(v)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ValidCredential reports whether key looks like a usable credential with the
// given vendor prefix. An empty prefix accepts any non-placeholder key of
// reasonable length. Keys with whitespace are rejected.
func ValidCredential(key, prefix string) bool {
	if IsPlaceholder(key) {
		return false
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return false
	}
	if prefix != "" && !strings.HasPrefix(key, prefix) {
		return false
	}
	return len(key)-len(prefix) >= 8
}

// DatabaseKind identifies the store backend selected by the database URL.
type DatabaseKind string

const (
	DatabaseLocal    DatabaseKind = "sqlite"
	DatabaseREST     DatabaseKind = "rest"
	DatabasePostgres DatabaseKind = "postgres"
)

// ParseDatabaseURL validates the configured database endpoint.
//
// Empty or placeholder URLs select the local database. Remote endpoints must
// be well-formed with a host, and use https (REST) or postgres/postgresql.
func ParseDatabaseURL(raw string) (DatabaseKind, *url.URL, error) {
	raw = strings.TrimSpace(raw)
	if IsPlaceholder(raw) {
		return DatabaseLocal, nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid database URL: %w", err)
	}
	if u.Host == "" {
		return "", nil, fmt.Errorf("invalid database URL %q: missing host", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		return DatabaseREST, u, nil
	case "postgres", "postgresql":
		return DatabasePostgres, u, nil
	case "http":
		return "", nil, fmt.Errorf("database URL must use https: %s", u.Redacted())
	default:
		return "", nil, fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}
}

// ValidateBaseURL checks a provider base URL. Empty is allowed (adapter default).
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q is missing a host", raw)
	}
	return nil
}

// Validate checks the loaded configuration. Malformed URLs are errors; missing
// credentials and placeholders only add warnings.
func (c *Config) Validate() error {
	c.Warnings = nil

	kind, _, err := ParseDatabaseURL(c.Database.URL)
	if err != nil {
		return err
	}
	if kind == DatabaseREST && IsPlaceholder(c.CredentialStore.Get("database")) {
		c.Warnings = append(c.Warnings, "database URL is set but DATABASE_KEY is missing")
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider entry with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true

		if err := ValidateBaseURL(p.BaseURL); err != nil {
			return fmt.Errorf("provider %s: %w", p.ID, err)
		}
		if p.Enabled && p.Credential != "" && IsPlaceholder(c.CredentialStore.Get(p.Credential)) {
			c.Warnings = append(c.Warnings, fmt.Sprintf("%s is not configured (no %s credential)", p.ID, p.Credential))
		}
	}

	if Debug && DebugLog != nil {
		for _, w := range c.Warnings {
			DebugLog.Printf("[Config] Warning: %s", w)
		}
	}
	return nil
}
