package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"relaychat/model"
)

// ExportedMessage is one message in an exported conversation file.
type ExportedMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ExportedConversation is the JSON document written by ExportConversation.
type ExportedConversation struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ExportedAt time.Time         `json:"exported_at"`
	Messages   []ExportedMessage `json:"messages"`
}

// ExportConversation writes conv and its messages as indented JSON to
// <dataDir>/exports/<id>.json and returns the file path.
func ExportConversation(dataDir string, conv model.Conversation, messages []model.Message) (string, error) {
	exportsDir := filepath.Join(dataDir, "exports")

	// Create exports directory if it doesn't exist (0700 - user-only access)
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}

	doc := ExportedConversation{
		ID:         conv.ID,
		Title:      conv.Title,
		CreatedAt:  conv.CreatedAt,
		UpdatedAt:  conv.UpdatedAt,
		ExportedAt: time.Now().UTC(),
		Messages:   make([]ExportedMessage, 0, len(messages)),
	}
	for _, m := range messages {
		doc.Messages = append(doc.Messages, ExportedMessage{
			Role:      m.Role(),
			Content:   m.Content,
			Status:    string(m.Status),
			Timestamp: m.Timestamp,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal conversation: %w", err)
	}

	name := strings.ReplaceAll(conv.ID, string(filepath.Separator), "_") + ".json"
	path := filepath.Join(exportsDir, name)

	// Use 0600 permissions - exports contain private conversation history
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
