package storage

import (
	"errors"
	"fmt"
	"time"

	"relaychat/model"
)

// conversationRecord is the persisted form of a conversation, shared by the
// SQL and REST backends.
type conversationRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// messageRecord is the persisted form of a message. Seq orders messages
// within a conversation.
type messageRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	IsFromUser     bool      `json:"is_from_user"`
	Status         string    `json:"status"`
	Seq            int64     `json:"seq"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r conversationRecord) toModel() model.Conversation {
	return model.Conversation{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r messageRecord) toModel() model.Message {
	status := model.MessageStatus(r.Status)
	if !status.Valid() {
		status = model.StatusSent
	}
	return model.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Content:        r.Content,
		IsFromUser:     r.IsFromUser,
		Timestamp:      r.CreatedAt,
		Status:         status,
	}
}

func messageToRecord(m model.Message, seq int64) messageRecord {
	return messageRecord{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		IsFromUser:     m.IsFromUser,
		Status:         string(m.Status),
		Seq:            seq,
		CreatedAt:      m.Timestamp,
	}
}

// storeErr wraps a backend failure as a StoreError, passing structured
// errors through untouched.
func storeErr(op string, err error) error {
	var structured *model.Error
	if errors.As(err, &structured) {
		return err
	}
	return &model.Error{Kind: model.KindStoreError, Detail: op, Err: err}
}

func unauthenticated() error {
	return &model.Error{Kind: model.KindUnauthenticated, Detail: "no user id"}
}

func notFound(conversationID string) error {
	return &model.Error{Kind: model.KindStoreError, Detail: "conversation " + conversationID + " not found"}
}

func messageNotFound(messageID string) error {
	return &model.Error{Kind: model.KindStoreError, Detail: "message " + messageID + " not found"}
}

// checkUser resolves the userID argument of FetchConversations against the
// store's own user.
func checkUser(own, requested string) (string, error) {
	if own == "" {
		return "", unauthenticated()
	}
	if requested != "" && requested != own {
		return "", &model.Error{Kind: model.KindUnauthenticated, Detail: "cannot list conversations of user " + requested}
	}
	return own, nil
}

// checkTransition validates a status update on a stored message.
func checkTransition(messageID string, current, next model.MessageStatus) error {
	if !current.CanTransition(next) {
		return &model.Error{
			Kind:   model.KindStoreError,
			Detail: fmt.Sprintf("message %s: invalid status transition %s -> %s", messageID, current, next),
		}
	}
	return nil
}

func cannotDeleteLast() error {
	return &model.Error{Kind: model.KindCannotDeleteLast}
}
