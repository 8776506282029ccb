// Package chat drives one user's conversations: it persists messages,
// calls the orchestrator, applies the fallback policy and derives titles.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"relaychat/config"
	"relaychat/model"
	"relaychat/orchestrator"
)

// markFailedTimeout bounds the store update that records a failed send.
const markFailedTimeout = 10 * time.Second

var (
	// ErrBusy is returned by Send while another send is in flight.
	ErrBusy = errors.New("a message is already being sent")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrAbandoned is returned by Send when Abandon was called while the
	// reply was being generated. The reply is discarded.
	ErrAbandoned = errors.New("request abandoned")
)

// TitleChangeFunc is called after a conversation is renamed.
type TitleChangeFunc func(conversationID, title string)

// Session is the orchestrator's caller: it owns the open conversation and
// its message list.
type Session struct {
	orch   *orchestrator.Orchestrator
	store  model.ConversationStore
	policy orchestrator.FallbackPolicy

	busy  atomic.Bool
	token atomic.Uint64

	mu       sync.RWMutex
	current  model.Conversation
	messages []model.Message
	draft    string

	subMu     sync.Mutex
	titleSubs map[int]TitleChangeFunc
	nextSub   int
}

func NewSession(orch *orchestrator.Orchestrator, store model.ConversationStore, policy orchestrator.FallbackPolicy) *Session {
	return &Session{
		orch:      orch,
		store:     store,
		policy:    policy,
		titleSubs: make(map[int]TitleChangeFunc),
	}
}

// Orchestrator returns the orchestrator the session sends through.
func (s *Session) Orchestrator() *orchestrator.Orchestrator {
	return s.orch
}

// Store returns the conversation store backing the session.
func (s *Session) Store() model.ConversationStore {
	return s.store
}

// Start opens the most recently updated conversation, creating one when the
// user has none.
func (s *Session) Start(ctx context.Context) error {
	conversations, err := s.Conversations(ctx)
	if err != nil {
		return err
	}
	if len(conversations) == 0 {
		_, err := s.NewConversation(ctx)
		return err
	}
	return s.open(ctx, conversations[0])
}

// Conversations lists the user's conversations, newest first.
func (s *Session) Conversations(ctx context.Context) ([]model.Conversation, error) {
	return s.store.FetchConversations(ctx, s.store.UserID())
}

// Current returns the open conversation.
func (s *Session) Current() model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Messages returns a copy of the open conversation's messages.
func (s *Session) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Draft returns the text of the last send that did not complete.
func (s *Session) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Busy reports whether a send is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Open switches to the conversation with the given ID.
func (s *Session) Open(ctx context.Context, id string) error {
	conversations, err := s.Conversations(ctx)
	if err != nil {
		return err
	}
	for _, c := range conversations {
		if c.ID == id {
			return s.open(ctx, c)
		}
	}
	return &model.Error{Kind: model.KindStoreError, Detail: "conversation " + id + " not found"}
}

func (s *Session) open(ctx context.Context, conv model.Conversation) error {
	messages, err := s.store.FetchMessages(ctx, conv.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = conv
	s.messages = messages
	s.mu.Unlock()

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] Opened conversation %s (%d messages)", conv.ID, len(messages))
	}
	return nil
}

// NewConversation creates an empty conversation and opens it.
func (s *Session) NewConversation(ctx context.Context) (model.Conversation, error) {
	conv, err := s.store.CreateConversation(ctx, model.DefaultConversationTitle)
	if err != nil {
		return model.Conversation{}, err
	}
	s.mu.Lock()
	s.current = conv
	s.messages = nil
	s.mu.Unlock()
	return conv, nil
}

// Rename sets the open conversation's title and notifies subscribers.
func (s *Session) Rename(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is empty")
	}
	conv := s.Current()
	if err := s.store.UpdateConversationTitle(ctx, conv.ID, title); err != nil {
		return err
	}
	s.setTitle(conv.ID, title)
	return nil
}

// Delete removes a conversation. Deleting the open conversation opens the
// most recent remaining one. The user's only conversation cannot be deleted.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return err
	}
	if s.Current().ID != id {
		return nil
	}
	return s.Start(ctx)
}

// OnTitleChange registers fn to be called whenever a conversation title
// changes. The returned func unregisters it.
func (s *Session) OnTitleChange(fn TitleChangeFunc) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.titleSubs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.titleSubs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) setTitle(conversationID, title string) {
	s.mu.Lock()
	if s.current.ID == conversationID {
		s.current.Title = title
	}
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]TitleChangeFunc, 0, len(s.titleSubs))
	for _, fn := range s.titleSubs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(conversationID, title)
	}
}

// Abandon invalidates the in-flight send; its reply will be discarded.
func (s *Session) Abandon() {
	s.token.Add(1)
}

// Send posts text to the open conversation and returns the assistant reply.
//
// The user message is stored first. Generation falls back to the policy's
// fallback model at most once. When no reply is delivered the user message
// is marked failed, the text stays available from Draft, and the next Send
// replaces the failed message instead of adding a second copy. The
// conversation's first delivered exchange derives a title and notifies
// subscribers.
func (s *Session) Send(ctx context.Context, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, ErrEmptyMessage
	}
	if !s.busy.CompareAndSwap(false, true) {
		return model.Message{}, ErrBusy
	}
	defer s.busy.Store(false)

	if s.Current().ID == "" {
		if _, err := s.NewConversation(ctx); err != nil {
			return model.Message{}, err
		}
	}
	if err := s.dropFailed(ctx); err != nil {
		return model.Message{}, err
	}

	token := s.token.Add(1)

	s.mu.Lock()
	s.draft = text
	conv := s.current
	history := make([]model.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Status != model.StatusFailed {
			history = append(history, m)
		}
	}
	pending := model.NewUserMessage(text)
	pending.ConversationID = conv.ID
	s.messages = append(s.messages, pending)
	pendingIdx := len(s.messages) - 1
	s.mu.Unlock()

	firstExchange := true
	for _, m := range history {
		if !m.IsFromUser {
			firstExchange = false
			break
		}
	}

	stored, err := s.store.AppendMessage(ctx, conv.ID, text, true)
	if err != nil {
		s.updatePending(conv.ID, pendingIdx, func(m model.Message) model.Message {
			failed, _ := m.WithStatus(model.StatusFailed)
			return failed
		})
		return model.Message{}, err
	}
	s.updatePending(conv.ID, pendingIdx, func(model.Message) model.Message { return stored })

	reply, err := s.generate(ctx, text, history)

	if s.token.Load() != token {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Discarding reply for abandoned request %d", token)
		}
		s.markFailed(ctx, conv.ID, pendingIdx, stored.ID)
		return model.Message{}, ErrAbandoned
	}
	if err != nil {
		s.markFailed(ctx, conv.ID, pendingIdx, stored.ID)
		return model.Message{}, err
	}

	assistant, err := s.store.AppendMessage(ctx, conv.ID, reply, false)
	if err != nil {
		s.markFailed(ctx, conv.ID, pendingIdx, stored.ID)
		return model.Message{}, err
	}
	if err := s.store.UpdateMessageStatus(ctx, stored.ID, model.StatusDelivered); err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Failed to mark %s delivered: %v", stored.ID, err)
		}
	}

	s.mu.Lock()
	if s.current.ID == conv.ID {
		if pendingIdx < len(s.messages) {
			if delivered, err := s.messages[pendingIdx].WithStatus(model.StatusDelivered); err == nil {
				s.messages[pendingIdx] = delivered
			}
		}
		s.messages = append(s.messages, assistant)
	}
	s.draft = ""
	s.mu.Unlock()

	if firstExchange {
		s.deriveTitle(ctx, conv.ID, text)
	}
	return assistant, nil
}

// markFailed moves the stored user message to failed in the store and, if
// its conversation is still open, in the session. The store update outlives
// ctx so that a cancelled send is still recorded.
func (s *Session) markFailed(ctx context.Context, conversationID string, idx int, messageID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()
	if err := s.store.UpdateMessageStatus(ctx, messageID, model.StatusFailed); err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Failed to mark %s failed: %v", messageID, err)
		}
	}
	s.updatePending(conversationID, idx, func(m model.Message) model.Message {
		failed, _ := m.WithStatus(model.StatusFailed)
		return failed
	})
}

// dropFailed removes trailing failed user messages from the open
// conversation; the message being sent replaces them.
func (s *Session) dropFailed(ctx context.Context) error {
	s.mu.RLock()
	conversationID := s.current.ID
	failed := trailingFailed(s.messages)
	s.mu.RUnlock()
	if len(failed) == 0 {
		return nil
	}

	for _, m := range failed {
		if m.ID == "" {
			continue
		}
		if err := s.store.DeleteMessage(ctx, m.ID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.current.ID == conversationID {
		s.messages = s.messages[:len(s.messages)-len(trailingFailed(s.messages))]
	}
	s.mu.Unlock()
	return nil
}

func trailingFailed(messages []model.Message) []model.Message {
	i := len(messages)
	for i > 0 && messages[i-1].IsFromUser && messages[i-1].Status == model.StatusFailed {
		i--
	}
	return messages[i:]
}

// generate calls the orchestrator, retrying once on the fallback model when
// the policy allows it.
func (s *Session) generate(ctx context.Context, text string, history []model.Message) (string, error) {
	reply, err := s.orch.Generate(ctx, text, history)
	if err == nil {
		return reply, nil
	}

	current := s.orch.SelectedModel().ID
	if !s.policy.ShouldFallback(err, current) {
		return "", err
	}
	if switchErr := s.orch.SwitchModel(s.policy.FallbackModelID); switchErr != nil {
		return "", err
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] %s failed (%s), retrying with %s", current, model.KindOf(err), s.policy.FallbackModelID)
	}
	return s.orch.Generate(ctx, text, history)
}

func (s *Session) deriveTitle(ctx context.Context, conversationID, text string) {
	title := s.orch.DeriveTitle(ctx, text)
	if err := s.store.UpdateConversationTitle(ctx, conversationID, title); err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Failed to store title for %s: %v", conversationID, err)
		}
		return
	}
	s.setTitle(conversationID, title)
}

// updatePending rewrites the optimistic user message if the conversation is
// still open.
func (s *Session) updatePending(conversationID string, idx int, fn func(model.Message) model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.ID != conversationID || idx >= len(s.messages) {
		return
	}
	s.messages[idx] = fn(s.messages[idx])
}
