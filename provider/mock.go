package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"relaychat/model"
)

// Titler is implemented by adapters that can produce a conversation title
// without a network round trip.
type Titler interface {
	GenerateTitle(ctx context.Context, message string) (string, error)
}

var mockReplies = []string{
	"That's an interesting question. In demo mode I can't reach a real model, but here's a thought: break the problem into smaller steps and tackle them one at a time.",
	"I'm the offline demo assistant. Add an API key for one of the configured providers to get real answers.",
	"Good point! Running in demo mode right now, so this reply is canned. Configure a provider with /key to chat with a real model.",
	"Here's a short answer from the demo assistant: it depends on your constraints. Tell me more and, once a provider is configured, a real model can help.",
}

// MockProvider is the always-available demo adapter. Replies are picked
// deterministically from the message text, so the same input always yields
// the same reply.
type MockProvider struct {
	cfg Config

	// Err makes every Generate call fail with this error (tests only).
	Err error
}

func NewMockProvider(cfg Config) *MockProvider {
	if cfg.ID == "" {
		cfg.ID = "mock"
	}
	if cfg.Model == "" {
		cfg.Model = "demo"
	}
	return &MockProvider{cfg: cfg}
}

// ID implements model.Provider.
func (p *MockProvider) ID() string {
	return p.cfg.ID + "/" + p.cfg.Model
}

// IsAvailable implements model.Provider. The mock is always available.
func (p *MockProvider) IsAvailable() bool {
	return true
}

// Generate implements model.Provider.
func (p *MockProvider) Generate(ctx context.Context, message string, history []model.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Err != nil {
		return "", p.Err
	}

	h := fnv.New32a()
	h.Write([]byte(strings.TrimSpace(message)))
	reply := mockReplies[int(h.Sum32()%uint32(len(mockReplies)))]

	if n := len(history); n > 0 {
		reply = fmt.Sprintf("%s (We've exchanged %d messages so far.)", reply, n)
	}
	return reply, nil
}

// GenerateTitle returns the first few words of the message, title-cased.
func (p *MockProvider) GenerateTitle(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Err != nil {
		return "", p.Err
	}

	words := strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	if len(words) > 4 {
		words = words[:4]
	}
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " "), nil
}
