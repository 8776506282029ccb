package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"relaychat/config"
	"relaychat/model"
)

// Dialect selects SQL syntax differences between backends.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements model.ConversationStore over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	userID  string
}

// NewSQLStore wraps an open database and creates the schema if needed.
// An empty userID is allowed; every operation then fails with
// Unauthenticated.
func NewSQLStore(db *sql.DB, dialect Dialect, userID string) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect, userID: userID}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initialize() error {
	timestamp := "DATETIME"
	boolean := "INTEGER"
	if s.dialect == DialectPostgres {
		timestamp = "TIMESTAMPTZ"
		boolean = "BOOLEAN"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at ` + timestamp + ` NOT NULL,
			updated_at ` + timestamp + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			content TEXT NOT NULL,
			is_from_user ` + boolean + ` NOT NULL,
			status TEXT NOT NULL,
			seq BIGINT NOT NULL,
			created_at ` + timestamp + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UserID implements model.ConversationStore.
func (s *SQLStore) UserID() string {
	return s.userID
}

// CreateConversation implements model.ConversationStore.
func (s *SQLStore) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	if s.userID == "" {
		return model.Conversation{}, unauthenticated()
	}
	if strings.TrimSpace(title) == "" {
		title = model.DefaultConversationTitle
	}

	now := time.Now().UTC()
	rec := conversationRecord{ID: uuid.New().String(), UserID: s.userID, Title: title, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.Title, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return model.Conversation{}, storeErr("create conversation", err)
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] Created conversation %s", rec.ID)
	}
	return rec.toModel(), nil
}

// FetchConversations implements model.ConversationStore. Newest first.
func (s *SQLStore) FetchConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	userID, err := checkUser(s.userID, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, user_id, title, created_at, updated_at FROM conversations
		 WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC`), userID)
	if err != nil {
		return nil, storeErr("fetch conversations", err)
	}
	defer rows.Close()

	conversations := []model.Conversation{}
	for rows.Next() {
		var rec conversationRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, storeErr("scan conversation", err)
		}
		conversations = append(conversations, rec.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch conversations", err)
	}
	return conversations, nil
}

// FetchMessages implements model.ConversationStore. Insertion order.
func (s *SQLStore) FetchMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	if err := s.checkOwner(ctx, s.db, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, conversation_id, content, is_from_user, status, seq, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY seq ASC`), conversationID)
	if err != nil {
		return nil, storeErr("fetch messages", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var rec messageRecord
		if err := rows.Scan(&rec.ID, &rec.ConversationID, &rec.Content, &rec.IsFromUser, &rec.Status, &rec.Seq, &rec.CreatedAt); err != nil {
			return nil, storeErr("scan message", err)
		}
		messages = append(messages, rec.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch messages", err)
	}
	return messages, nil
}

// AppendMessage implements model.ConversationStore. The stored message has
// status sent and the conversation's UpdatedAt is bumped.
func (s *SQLStore) AppendMessage(ctx context.Context, conversationID, content string, isFromUser bool) (model.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Message{}, storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.checkOwner(ctx, tx, conversationID); err != nil {
		return model.Message{}, err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, s.rebind(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`), conversationID).Scan(&seq); err != nil {
		return model.Message{}, storeErr("next sequence", err)
	}

	msg := model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Content:        content,
		IsFromUser:     isFromUser,
		Timestamp:      time.Now().UTC(),
		Status:         model.StatusSent,
	}
	rec := messageToRecord(msg, seq)
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO messages (id, conversation_id, content, is_from_user, status, seq, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.ConversationID, rec.Content, rec.IsFromUser, rec.Status, rec.Seq, rec.CreatedAt); err != nil {
		return model.Message{}, storeErr("append message", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE conversations SET updated_at = ? WHERE id = ?`), msg.Timestamp, conversationID); err != nil {
		return model.Message{}, storeErr("touch conversation", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Message{}, storeErr("commit", err)
	}
	return msg, nil
}

// UpdateMessageStatus implements model.ConversationStore.
func (s *SQLStore) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	current, err := s.messageStatus(ctx, tx, messageID)
	if err != nil {
		return err
	}
	if err := checkTransition(messageID, current, status); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE messages SET status = ? WHERE id = ?`), string(status), messageID); err != nil {
		return storeErr("update message status", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

// DeleteMessage implements model.ConversationStore.
func (s *SQLStore) DeleteMessage(ctx context.Context, messageID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	current, err := s.messageStatus(ctx, tx, messageID)
	if err != nil {
		return err
	}
	if current != model.StatusFailed {
		return &model.Error{Kind: model.KindStoreError, Detail: "message " + messageID + " is " + string(current) + " and cannot be deleted"}
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM messages WHERE id = ?`), messageID); err != nil {
		return storeErr("delete message", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] Deleted failed message %s", messageID)
	}
	return nil
}

// messageStatus returns the status of a message in one of the user's
// conversations.
func (s *SQLStore) messageStatus(ctx context.Context, q queryRower, messageID string) (model.MessageStatus, error) {
	if s.userID == "" {
		return "", unauthenticated()
	}
	var status string
	err := q.QueryRowContext(ctx, s.rebind(
		`SELECT m.status FROM messages m JOIN conversations c ON c.id = m.conversation_id
		 WHERE m.id = ? AND c.user_id = ?`), messageID, s.userID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", messageNotFound(messageID)
	}
	if err != nil {
		return "", storeErr("lookup message", err)
	}
	return model.MessageStatus(status), nil
}

// UpdateConversationTitle implements model.ConversationStore.
func (s *SQLStore) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	if s.userID == "" {
		return unauthenticated()
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`),
		title, time.Now().UTC(), conversationID, s.userID)
	if err != nil {
		return storeErr("update title", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(conversationID)
	}
	return nil
}

// DeleteConversation implements model.ConversationStore. The user's only
// conversation cannot be deleted.
func (s *SQLStore) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.checkOwner(ctx, tx, conversationID); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM conversations WHERE user_id = ?`), s.userID).Scan(&count); err != nil {
		return storeErr("count conversations", err)
	}
	if count <= 1 {
		return cannotDeleteLast()
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM messages WHERE conversation_id = ?`), conversationID); err != nil {
		return storeErr("delete messages", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM conversations WHERE id = ?`), conversationID); err != nil {
		return storeErr("delete conversation", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] Deleted conversation %s", conversationID)
	}
	return nil
}

// Close implements model.ConversationStore.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// checkOwner verifies that conversationID exists and belongs to the store's user.
func (s *SQLStore) checkOwner(ctx context.Context, q queryRower, conversationID string) error {
	if s.userID == "" {
		return unauthenticated()
	}
	var owner string
	err := q.QueryRowContext(ctx, s.rebind(`SELECT user_id FROM conversations WHERE id = ?`), conversationID).Scan(&owner)
	if err == sql.ErrNoRows {
		return notFound(conversationID)
	}
	if err != nil {
		return storeErr("lookup conversation", err)
	}
	if owner != s.userID {
		return notFound(conversationID)
	}
	return nil
}
