package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"relaychat/config"
	"relaychat/provider"
)

const (
	maxTitleRunes = 50
	minTitleRunes = 3

	// DefaultTitle is used when neither the provider nor the keyword table
	// produce a title.
	DefaultTitle = "Chat"
)

const titlePrompt = "Summarize the following message as a conversation title of 2 to 4 words. " +
	"Reply with the title only, no quotes or punctuation.\n\nMessage: %s"

// topicKeywords is checked in order; the first topic with a matching token wins.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"Code Help", []string{"code", "coding", "programming", "program", "python", "javascript", "typescript", "golang", "java", "rust", "bug", "debug", "function", "compile", "sql"}},
	{"Cooking", []string{"recipe", "recipes", "cook", "cooking", "bake", "baking", "dinner", "lunch", "breakfast"}},
	{"Travel Plans", []string{"travel", "trip", "flight", "flights", "vacation", "hotel", "itinerary"}},
	{"Math Help", []string{"math", "equation", "algebra", "calculus", "geometry", "solve", "integral"}},
	{"Writing Help", []string{"write", "writing", "essay", "story", "poem", "email", "letter", "grammar"}},
	{"Health & Fitness", []string{"health", "exercise", "workout", "diet", "fitness", "sleep"}},
	{"Money Matters", []string{"budget", "money", "invest", "investing", "savings", "finance", "tax"}},
}

// DeriveTitle produces a short title for a conversation from its first user
// message. It asks the selected provider first and falls back to the keyword
// table on any failure. Orchestrator state is not touched and no error is
// ever returned.
func (o *Orchestrator) DeriveTitle(ctx context.Context, message string) string {
	raw, err := o.requestTitle(ctx, message)
	if err == nil {
		if title, ok := normalizeTitle(raw); ok {
			return title
		}
		err = fmt.Errorf("unusable title %q", raw)
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Orchestrator] Title generation failed, using keywords: %v", err)
	}
	return KeywordTitle(message)
}

func (o *Orchestrator) requestTitle(ctx context.Context, message string) (string, error) {
	p, err := o.resolve(o.SelectedModel())
	if err != nil {
		return "", err
	}
	if titler, ok := p.(provider.Titler); ok {
		return titler.GenerateTitle(ctx, message)
	}
	return p.Generate(ctx, fmt.Sprintf(titlePrompt, message), nil)
}

// normalizeTitle cleans a provider-generated title. Results shorter than
// minTitleRunes are rejected; longer than maxTitleRunes are cut with "...".
func normalizeTitle(raw string) (string, bool) {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i != -1 {
		title = title[:i]
	}
	title = strings.Trim(title, " \t\"'`*")
	title = strings.TrimPrefix(title, "Title:")
	title = strings.TrimSpace(strings.TrimRight(title, "."))

	runes := []rune(title)
	if len(runes) < minTitleRunes {
		return "", false
	}
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes-3]) + "..."
	}
	return title, true
}

// KeywordTitle maps a message to a topic title using the fixed keyword
// table, or DefaultTitle when nothing matches.
func KeywordTitle(message string) string {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[tok] = true
	}

	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if tokens[kw] {
				return entry.topic
			}
		}
	}
	return DefaultTitle
}
