package config

import (
	"strings"
	"testing"
)

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"your-api-key", true},
		{"sk-YOUR_API_KEY", true},
		{"<openai key>", true},
		{"xxxxxxxx", true},
		{"changeme", true},
		{"TODO", true},
		{"https://example.com", true},
		{"sk-proj-abc123def456", false},
		{"https://abc.supabase.co", false},
	}
	for _, tt := range tests {
		if got := IsPlaceholder(tt.value); got != tt.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestValidCredential(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		prefix string
		want   bool
	}{
		{"valid openai", "sk-abcdefgh12345678", "sk-", true},
		{"wrong prefix", "gsk_abcdefgh12345678", "sk-", false},
		{"too short", "sk-abc", "sk-", false},
		{"placeholder", "sk-your-api-key-here", "sk-", false},
		{"whitespace", "sk-abcdefgh 12345678", "sk-", false},
		{"no prefix required", "abcdefgh12345678", "", true},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCredential(tt.key, tt.prefix); got != tt.want {
				t.Errorf("ValidCredential(%q, %q) = %v, want %v", tt.key, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    DatabaseKind
		wantErr string
	}{
		{"", DatabaseLocal, ""},
		{"https://your-project.example.com", DatabaseLocal, ""},
		{"https://abc.supabase.co", DatabaseREST, ""},
		{"postgres://u:p@db.internal:5432/chat", DatabasePostgres, ""},
		{"postgresql://db.internal/chat", DatabasePostgres, ""},
		{"http://abc.supabase.co", "", "must use https"},
		{"ftp://abc.host", "", "unsupported"},
		{"https://", "", "missing host"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			kind, _, err := ParseDatabaseURL(tt.raw)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if kind != tt.want {
				t.Errorf("kind = %s, want %s", kind, tt.want)
			}
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	for _, ok := range []string{"", "http://localhost:11434", "https://api.openai.com/v1"} {
		if err := ValidateBaseURL(ok); err != nil {
			t.Errorf("ValidateBaseURL(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"localhost:11434", "ws://host", "https://"} {
		if err := ValidateBaseURL(bad); err == nil {
			t.Errorf("ValidateBaseURL(%q) accepted", bad)
		}
	}
}

func TestValidateWarnsOnMissingCredentials(t *testing.T) {
	cfg := &Config{
		Providers: []ProviderConfig{
			{ID: "openai", BaseURL: "https://api.openai.com/v1", Credential: "openai", Enabled: true},
			{ID: "groq", Credential: "groq", Enabled: true},
			{ID: "anthropic", Credential: "anthropic", Enabled: false},
			{ID: "mock", Enabled: true},
		},
		Database:        DatabaseConfig{URL: "https://abc.supabase.co"},
		CredentialStore: NewCredentialStoreFrom(map[string]string{"openai": "sk-abcdefgh12345678", "groq": "your-api-key"}),
	}

	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(cfg.Warnings, "\n")
	if !strings.Contains(joined, "groq is not configured") {
		t.Errorf("missing groq warning: %q", joined)
	}
	if !strings.Contains(joined, "DATABASE_KEY") {
		t.Errorf("missing database key warning: %q", joined)
	}
	if strings.Contains(joined, "openai") || strings.Contains(joined, "anthropic") {
		t.Errorf("unexpected warnings: %q", joined)
	}
}

func TestValidateRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad database url", Config{Database: DatabaseConfig{URL: "http://db.host"}}},
		{"empty id", Config{Providers: []ProviderConfig{{Type: "mock"}}}},
		{"duplicate id", Config{Providers: []ProviderConfig{{ID: "a"}, {ID: "a"}}}},
		{"bad base url", Config{Providers: []ProviderConfig{{ID: "a", BaseURL: "api.host"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.CredentialStore = NewCredentialStore()
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}
