package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"relaychat/config"
	"relaychat/model"
)

// OpenAIProvider implements model.Provider using OpenAI's official Go SDK.
// It also serves OpenAI-compatible services (Groq, OpenRouter) through a
// custom base URL.
type OpenAIProvider struct {
	client openai.Client
	cfg    Config
}

// NewOpenAIProvider creates a new OpenAI-compatible provider instance.
//
// The API key is not baked into the client: it is read through cfg.APIKey on
// every call and attached per request, so a key added at runtime is used
// immediately. SDK retries are disabled; Generate is single-attempt.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini" // Default to affordable model
	}
	if cfg.ID == "" {
		cfg.ID = "openai"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// ID implements model.Provider.
func (p *OpenAIProvider) ID() string {
	return p.cfg.ID + "/" + p.cfg.Model
}

// IsAvailable implements model.Provider.
func (p *OpenAIProvider) IsAvailable() bool {
	return config.ValidCredential(p.cfg.apiKey(), p.cfg.KeyPrefix)
}

// Generate implements model.Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, message string, history []model.Message) (string, error) {
	key := p.cfg.apiKey()
	if !config.ValidCredential(key, p.cfg.KeyPrefix) {
		return "", notConfigured(p.ID())
	}

	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(
			p.cfg.systemPrompt(),
			model.LastN(history, p.cfg.historyWindow(DefaultOpenAIHistory)),
			message,
		),
		Model: openai.ChatModel(p.cfg.Model),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params, option.WithAPIKey(key))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus(p.ID(), apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("%s request failed: %w", p.ID(), err)
	}

	if len(resp.Choices) == 0 {
		return "", malformed(p.ID(), "no choices in response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", malformed(p.ID(), "empty completion")
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[OpenAI] %s replied with %d chars", p.ID(), len(text))
	}
	return text, nil
}

// GetModel returns the model name used for API calls.
func (p *OpenAIProvider) GetModel() string {
	return p.cfg.Model
}
