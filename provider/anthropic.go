package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"relaychat/config"
	"relaychat/model"
)

// anthropicMaxTokens caps reply length; the Messages API requires a value.
const anthropicMaxTokens = 1024

// AnthropicProvider implements model.Provider using Anthropic's official API.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    Config
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Defaults: base URL "https://api.anthropic.com", model Claude 3.5 Haiku,
// key prefix "sk-ant-".
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	if cfg.ID == "" {
		cfg.ID = "anthropic"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// ID implements model.Provider.
func (p *AnthropicProvider) ID() string {
	return p.cfg.ID + "/" + p.cfg.Model
}

// IsAvailable implements model.Provider.
func (p *AnthropicProvider) IsAvailable() bool {
	return config.ValidCredential(p.cfg.apiKey(), p.cfg.KeyPrefix)
}

// Generate implements model.Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, message string, history []model.Message) (string, error) {
	key := p.cfg.apiKey()
	if !config.ValidCredential(key, p.cfg.KeyPrefix) {
		return "", notConfigured(p.ID())
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: p.cfg.systemPrompt()},
		},
		Messages: convertToAnthropicMessages(
			model.LastN(history, p.cfg.historyWindow(DefaultAnthropicHistory)),
			message,
		),
	}

	msg, err := p.client.Messages.New(ctx, params, option.WithAPIKey(key))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus(p.ID(), apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("%s request failed: %w", p.ID(), err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", malformed(p.ID(), "no text content in message")
	}
	return text, nil
}

// GetModel returns the model name used for API calls.
func (p *AnthropicProvider) GetModel() string {
	return p.cfg.Model
}
