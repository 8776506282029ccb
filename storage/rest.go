package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"relaychat/config"
	"relaychat/model"
)

// RESTStore implements model.ConversationStore against a PostgREST endpoint
// (e.g. a hosted Postgres with a REST gateway) exposing the conversations
// and messages tables.
type RESTStore struct {
	baseURL string
	apiKey  string
	userID  string
	client  *http.Client
}

// NewRESTStore creates a REST-backed store. baseURL is the project URL;
// tables are addressed under /rest/v1/. A nil httpClient uses a client with
// a 30 second timeout.
func NewRESTStore(baseURL, apiKey, userID string, httpClient *http.Client) *RESTStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/") + "/rest/v1/",
		apiKey:  apiKey,
		userID:  userID,
		client:  httpClient,
	}
}

// UserID implements model.ConversationStore.
func (s *RESTStore) UserID() string {
	return s.userID
}

// do sends one request. A non-nil out receives the decoded JSON response.
func (s *RESTStore) do(ctx context.Context, method, table string, query url.Values, body, out any) error {
	if s.userID == "" {
		return unauthenticated()
	}

	endpoint := s.baseURL + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return &model.Error{Kind: model.KindUnauthenticated, Detail: strings.TrimSpace(string(respBody))}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: http %d: %s", method, table, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func eq(v string) string {
	return "eq." + v
}

// CreateConversation implements model.ConversationStore.
func (s *RESTStore) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = model.DefaultConversationTitle
	}
	now := time.Now().UTC()
	rec := conversationRecord{ID: uuid.New().String(), UserID: s.userID, Title: title, CreatedAt: now, UpdatedAt: now}

	var created []conversationRecord
	if err := s.do(ctx, http.MethodPost, "conversations", nil, rec, &created); err != nil {
		return model.Conversation{}, storeErr("create conversation", err)
	}
	if len(created) > 0 {
		rec = created[0]
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] Created remote conversation %s", rec.ID)
	}
	return rec.toModel(), nil
}

// FetchConversations implements model.ConversationStore. Newest first.
func (s *RESTStore) FetchConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	userID, err := checkUser(s.userID, userID)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("user_id", eq(userID))
	query.Set("order", "updated_at.desc")

	var records []conversationRecord
	if err := s.do(ctx, http.MethodGet, "conversations", query, nil, &records); err != nil {
		return nil, storeErr("fetch conversations", err)
	}

	conversations := make([]model.Conversation, 0, len(records))
	for _, rec := range records {
		conversations = append(conversations, rec.toModel())
	}
	return conversations, nil
}

// FetchMessages implements model.ConversationStore. Insertion order.
func (s *RESTStore) FetchMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	if err := s.checkOwner(ctx, conversationID); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("conversation_id", eq(conversationID))
	query.Set("order", "seq.asc")

	var records []messageRecord
	if err := s.do(ctx, http.MethodGet, "messages", query, nil, &records); err != nil {
		return nil, storeErr("fetch messages", err)
	}

	messages := make([]model.Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, rec.toModel())
	}
	return messages, nil
}

// AppendMessage implements model.ConversationStore.
func (s *RESTStore) AppendMessage(ctx context.Context, conversationID, content string, isFromUser bool) (model.Message, error) {
	if err := s.checkOwner(ctx, conversationID); err != nil {
		return model.Message{}, err
	}

	// PostgREST has no server-side sequence here; the next seq is derived
	// from the latest stored message.
	query := url.Values{}
	query.Set("conversation_id", eq(conversationID))
	query.Set("select", "seq")
	query.Set("order", "seq.desc")
	query.Set("limit", "1")

	var last []messageRecord
	if err := s.do(ctx, http.MethodGet, "messages", query, nil, &last); err != nil {
		return model.Message{}, storeErr("next sequence", err)
	}
	seq := int64(1)
	if len(last) > 0 {
		seq = last[0].Seq + 1
	}

	msg := model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Content:        content,
		IsFromUser:     isFromUser,
		Timestamp:      time.Now().UTC(),
		Status:         model.StatusSent,
	}
	if err := s.do(ctx, http.MethodPost, "messages", nil, messageToRecord(msg, seq), nil); err != nil {
		return model.Message{}, storeErr("append message", err)
	}

	touch := url.Values{}
	touch.Set("id", eq(conversationID))
	if err := s.do(ctx, http.MethodPatch, "conversations", touch, map[string]any{"updated_at": msg.Timestamp}, nil); err != nil {
		return model.Message{}, storeErr("touch conversation", err)
	}
	return msg, nil
}

// UpdateMessageStatus implements model.ConversationStore.
func (s *RESTStore) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error {
	rec, err := s.ownedMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if err := checkTransition(messageID, model.MessageStatus(rec.Status), status); err != nil {
		return err
	}

	query := url.Values{}
	query.Set("id", eq(messageID))
	if err := s.do(ctx, http.MethodPatch, "messages", query, map[string]any{"status": string(status)}, nil); err != nil {
		return storeErr("update message status", err)
	}
	return nil
}

// DeleteMessage implements model.ConversationStore.
func (s *RESTStore) DeleteMessage(ctx context.Context, messageID string) error {
	rec, err := s.ownedMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if model.MessageStatus(rec.Status) != model.StatusFailed {
		return &model.Error{Kind: model.KindStoreError, Detail: "message " + messageID + " is " + rec.Status + " and cannot be deleted"}
	}

	query := url.Values{}
	query.Set("id", eq(messageID))
	if err := s.do(ctx, http.MethodDelete, "messages", query, nil, nil); err != nil {
		return storeErr("delete message", err)
	}
	return nil
}

// checkOwner verifies that conversationID exists and belongs to the store's user.
func (s *RESTStore) checkOwner(ctx context.Context, conversationID string) error {
	if s.userID == "" {
		return unauthenticated()
	}
	query := url.Values{}
	query.Set("id", eq(conversationID))
	query.Set("user_id", eq(s.userID))
	query.Set("select", "id")

	var found []conversationRecord
	if err := s.do(ctx, http.MethodGet, "conversations", query, nil, &found); err != nil {
		return storeErr("lookup conversation", err)
	}
	if len(found) == 0 {
		return notFound(conversationID)
	}
	return nil
}

// ownedMessage loads a message and verifies its conversation belongs to the
// store's user.
func (s *RESTStore) ownedMessage(ctx context.Context, messageID string) (messageRecord, error) {
	if s.userID == "" {
		return messageRecord{}, unauthenticated()
	}
	query := url.Values{}
	query.Set("id", eq(messageID))
	query.Set("select", "id,conversation_id,status")

	var found []messageRecord
	if err := s.do(ctx, http.MethodGet, "messages", query, nil, &found); err != nil {
		return messageRecord{}, storeErr("lookup message", err)
	}
	if len(found) == 0 {
		return messageRecord{}, messageNotFound(messageID)
	}
	if err := s.checkOwner(ctx, found[0].ConversationID); err != nil {
		return messageRecord{}, err
	}
	return found[0], nil
}

// UpdateConversationTitle implements model.ConversationStore.
func (s *RESTStore) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	query := url.Values{}
	query.Set("id", eq(conversationID))
	query.Set("user_id", eq(s.userID))

	var updated []conversationRecord
	body := map[string]any{"title": title, "updated_at": time.Now().UTC()}
	if err := s.do(ctx, http.MethodPatch, "conversations", query, body, &updated); err != nil {
		return storeErr("update title", err)
	}
	if len(updated) == 0 {
		return notFound(conversationID)
	}
	return nil
}

// DeleteConversation implements model.ConversationStore.
func (s *RESTStore) DeleteConversation(ctx context.Context, conversationID string) error {
	conversations, err := s.FetchConversations(ctx, s.userID)
	if err != nil {
		return err
	}
	found := false
	for _, c := range conversations {
		if c.ID == conversationID {
			found = true
			break
		}
	}
	if !found {
		return notFound(conversationID)
	}
	if len(conversations) <= 1 {
		return cannotDeleteLast()
	}

	messages := url.Values{}
	messages.Set("conversation_id", eq(conversationID))
	if err := s.do(ctx, http.MethodDelete, "messages", messages, nil, nil); err != nil {
		return storeErr("delete messages", err)
	}

	conv := url.Values{}
	conv.Set("id", eq(conversationID))
	conv.Set("user_id", eq(s.userID))
	if err := s.do(ctx, http.MethodDelete, "conversations", conv, nil, nil); err != nil {
		return storeErr("delete conversation", err)
	}
	return nil
}

// Close implements model.ConversationStore.
func (s *RESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
