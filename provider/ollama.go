package provider

import (
	"context"
	"fmt"
	"strings"

	"relaychat/config"
	"relaychat/model"
	"relaychat/ollama"
)

// OllamaProvider wraps ollama.Client to implement model.Provider.
//
// Ollama needs no credential. It is available when the entry is enabled and
// its base URL is well formed; the server itself is only contacted by
// Generate.
type OllamaProvider struct {
	client *ollama.Client
	cfg    Config
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Returns an error if the base URL cannot be parsed.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	if cfg.ID == "" {
		cfg.ID = "ollama"
	}
	client, err := ollama.NewClient(cfg.BaseURL, cfg.Model, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	cfg.BaseURL = client.BaseURL()
	cfg.Model = client.GetModel()

	return &OllamaProvider{
		client: client,
		cfg:    cfg,
	}, nil
}

// ID implements model.Provider.
func (p *OllamaProvider) ID() string {
	return p.cfg.ID + "/" + p.cfg.Model
}

// IsAvailable implements model.Provider.
func (p *OllamaProvider) IsAvailable() bool {
	return p.cfg.Enabled && config.ValidateBaseURL(p.cfg.BaseURL) == nil
}

// Generate implements model.Provider.
func (p *OllamaProvider) Generate(ctx context.Context, message string, history []model.Message) (string, error) {
	if !p.IsAvailable() {
		return "", notConfigured(p.ID())
	}

	messages := ConvertToOllamaMessages(
		p.cfg.systemPrompt(),
		model.LastN(history, p.cfg.historyWindow(DefaultOllamaHistory)),
		message,
	)

	reply, err := p.client.Chat(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if status := ollama.StatusCode(err); status != 0 {
			return "", classifyStatus(p.ID(), status, err)
		}
		// Connection refused and friends: the local server is down.
		return "", &model.Error{Kind: model.KindUnavailable, Provider: p.ID(), Detail: "server unreachable", Err: err}
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", malformed(p.ID(), "empty reply")
	}
	return reply, nil
}

// Ping checks that the Ollama server responds.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// GetModel returns the model name used for API calls.
func (p *OllamaProvider) GetModel() string {
	return p.cfg.Model
}
