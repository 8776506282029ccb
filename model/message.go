package model

import (
	"fmt"
	"time"
)

// MessageStatus tracks delivery of a message through the send pipeline.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a message in status s may move to next.
//
// Allowed: sending→sent, sending→failed, sent→delivered, sent→failed.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	switch s {
	case StatusSending:
		return next == StatusSent || next == StatusFailed
	case StatusSent:
		return next == StatusDelivered || next == StatusFailed
	}
	return false
}

// Message represents a chat message in a conversation
type Message struct {
	ID             string
	ConversationID string
	Content        string
	IsFromUser     bool
	Timestamp      time.Time
	Status         MessageStatus
}

// Role maps the message author to the chat-completion role name used by providers.
func (m Message) Role() string {
	if m.IsFromUser {
		return "user"
	}
	return "assistant"
}

// WithStatus returns a copy of m moved to next, or an error when the
// transition is not allowed.
func (m Message) WithStatus(next MessageStatus) (Message, error) {
	if !m.Status.CanTransition(next) {
		return m, fmt.Errorf("invalid message status transition %s -> %s", m.Status, next)
	}
	m.Status = next
	return m, nil
}

// Conversation is an ordered collection of messages belonging to one user.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultConversationTitle is used for new conversations until a title is derived.
const DefaultConversationTitle = "New Chat"

// NewUserMessage builds an outgoing user message in the sending state.
func NewUserMessage(content string) Message {
	return Message{
		Content:    content,
		IsFromUser: true,
		Timestamp:  time.Now(),
		Status:     StatusSending,
	}
}

// LastN returns the last n messages of history in chronological order.
func LastN(history []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
