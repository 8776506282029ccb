package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"relaychat/config"
	"relaychat/model"
)

// HuggingFaceProvider calls the HuggingFace Inference API text-generation
// endpoint. The endpoint takes a single prompt string, so history is
// rendered as a User/Assistant transcript.
type HuggingFaceProvider struct {
	cfg Config
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// hfError is the body returned while a model is cold or on failure.
type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

func NewHuggingFaceProvider(cfg Config) (*HuggingFaceProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	if cfg.Model == "" {
		cfg.Model = "mistralai/Mistral-7B-Instruct-v0.3"
	}
	if cfg.ID == "" {
		cfg.ID = "huggingface"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HuggingFaceProvider{cfg: cfg}, nil
}

// ID implements model.Provider.
func (p *HuggingFaceProvider) ID() string {
	return p.cfg.ID + "/" + p.cfg.Model
}

// IsAvailable implements model.Provider.
func (p *HuggingFaceProvider) IsAvailable() bool {
	return config.ValidCredential(p.cfg.apiKey(), p.cfg.KeyPrefix)
}

// Generate implements model.Provider.
func (p *HuggingFaceProvider) Generate(ctx context.Context, message string, history []model.Message) (string, error) {
	key := p.cfg.apiKey()
	if !config.ValidCredential(key, p.cfg.KeyPrefix) {
		return "", notConfigured(p.ID())
	}

	body, err := json.Marshal(hfRequest{
		Inputs: BuildTranscriptPrompt(
			p.cfg.systemPrompt(),
			model.LastN(history, p.cfg.historyWindow(DefaultHuggingFaceHistory)),
			message,
		),
		Parameters: hfParameters{
			MaxNewTokens: 512,
			Temperature:  0.7,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.cfg.BaseURL + "/models/" + p.cfg.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.cfg.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.ID(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", p.statusError(resp.StatusCode, respBody)
	}

	text, err := parseHFGeneration(respBody)
	if err != nil {
		return "", malformed(p.ID(), err.Error())
	}
	text = cutAtNextTurn(text)
	if text == "" {
		return "", malformed(p.ID(), "empty generated_text")
	}
	return text, nil
}

func (p *HuggingFaceProvider) statusError(status int, body []byte) error {
	var apiErr hfError
	detail := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		detail = apiErr.Error
		// A model that is still loading answers 503 with estimated_time.
		if status == http.StatusServiceUnavailable && apiErr.EstimatedTime > 0 {
			detail = fmt.Sprintf("%s (ready in about %.0fs)", detail, apiErr.EstimatedTime)
		}
	}
	return classifyStatus(p.ID(), status, fmt.Errorf("%s", detail))
}

// parseHFGeneration accepts both response shapes the API uses:
// [{"generated_text": "..."}] and {"generated_text": "..."}.
func parseHFGeneration(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("empty body")
	}

	if trimmed[0] == '[' {
		var list []hfGeneration
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if len(list) == 0 {
			return "", fmt.Errorf("no generations in response")
		}
		return list[0].GeneratedText, nil
	}

	var single hfGeneration
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return single.GeneratedText, nil
}

// GetModel returns the model name used for API calls.
func (p *HuggingFaceProvider) GetModel() string {
	return p.cfg.Model
}
