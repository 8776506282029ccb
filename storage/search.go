package storage

import (
	"context"
	"strings"
	"time"

	"relaychat/model"
)

// MessageMatch is one message containing a search query.
type MessageMatch struct {
	ConversationID    string
	ConversationTitle string
	MessageIndex      int
	IsFromUser        bool
	Preview           string
	Timestamp         time.Time
}

const previewRunes = 100

// SearchMessages scans every conversation of the store's user for messages
// containing query (case-insensitive). Conversations that fail to load are
// skipped.
func SearchMessages(ctx context.Context, store model.ConversationStore, query string) ([]MessageMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []MessageMatch{}, nil
	}

	conversations, err := store.FetchConversations(ctx, store.UserID())
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	matches := []MessageMatch{}

	for _, conv := range conversations {
		messages, err := store.FetchMessages(ctx, conv.ID)
		if err != nil {
			continue
		}

		for i, msg := range messages {
			if !strings.Contains(strings.ToLower(msg.Content), queryLower) {
				continue
			}
			preview := msg.Content
			if runes := []rune(preview); len(runes) > previewRunes {
				preview = string(runes[:previewRunes]) + "..."
			}
			matches = append(matches, MessageMatch{
				ConversationID:    conv.ID,
				ConversationTitle: conv.Title,
				MessageIndex:      i,
				IsFromUser:        msg.IsFromUser,
				Preview:           preview,
				Timestamp:         msg.Timestamp,
			})
		}
	}

	return matches, nil
}
