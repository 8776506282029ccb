package model

import "context"

// ConversationStore persists conversations and their messages.
//
// Implementations live in the storage package. Every method may fail with
// an *Error of kind KindUnauthenticated or KindStoreError.
type ConversationStore interface {
	// CreateConversation creates an empty conversation owned by the store's user.
	CreateConversation(ctx context.Context, title string) (Conversation, error)

	// FetchConversations lists the user's conversations, most recently updated
	// first. An empty userID means the store's user; any other user fails
	// with KindUnauthenticated.
	FetchConversations(ctx context.Context, userID string) ([]Conversation, error)

	// FetchMessages returns the conversation's messages in insertion order.
	FetchMessages(ctx context.Context, conversationID string) ([]Message, error)

	// AppendMessage stores a new message with status sent and bumps the
	// conversation's update time.
	AppendMessage(ctx context.Context, conversationID, content string, isFromUser bool) (Message, error)

	// UpdateMessageStatus moves a stored message to status. Only the
	// transitions allowed by MessageStatus.CanTransition are accepted.
	UpdateMessageStatus(ctx context.Context, messageID string, status MessageStatus) error

	// DeleteMessage removes a message that failed to send. Messages in any
	// other status are immutable and cannot be deleted.
	DeleteMessage(ctx context.Context, messageID string) error

	// UpdateConversationTitle renames a conversation.
	UpdateConversationTitle(ctx context.Context, conversationID, title string) error

	// DeleteConversation removes a conversation and its messages. It fails with
	// KindCannotDeleteLast when the conversation is the user's only one.
	DeleteConversation(ctx context.Context, conversationID string) error

	// UserID returns the authenticated user the store acts for.
	UserID() string

	Close() error
}
