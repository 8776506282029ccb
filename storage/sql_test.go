package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/model"
)

func newTestStore(t *testing.T, userID string) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), userID)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStoreConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "alice")

	first, err := store.CreateConversation(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConversationTitle, first.Title)
	assert.Equal(t, "alice", first.UserID)
	assert.NotEmpty(t, first.ID)

	second, err := store.CreateConversation(ctx, "Second")
	require.NoError(t, err)

	// Appending to the first conversation makes it the most recent.
	_, err = store.AppendMessage(ctx, first.ID, "hello", true)
	require.NoError(t, err)

	list, err := store.FetchConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	require.NoError(t, store.UpdateConversationTitle(ctx, second.ID, "Renamed"))
	list, err = store.FetchConversations(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", list[0].Title)
}

func TestSQLStoreMessagesInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "alice")

	conv, err := store.CreateConversation(ctx, "Chat")
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four"}
	for i, c := range contents {
		msg, err := store.AppendMessage(ctx, conv.ID, c, i%2 == 0)
		require.NoError(t, err)
		assert.Equal(t, model.StatusSent, msg.Status)
		assert.Equal(t, conv.ID, msg.ConversationID)
	}

	messages, err := store.FetchMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, len(contents))
	for i, m := range messages {
		assert.Equal(t, contents[i], m.Content)
		assert.Equal(t, i%2 == 0, m.IsFromUser)
		assert.Equal(t, model.StatusSent, m.Status)
	}
}

func TestSQLStoreCannotDeleteLast(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "alice")

	only, err := store.CreateConversation(ctx, "Only")
	require.NoError(t, err)

	err = store.DeleteConversation(ctx, only.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrCannotDeleteLast))

	list, err := store.FetchConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, only.ID, list[0].ID)
}

func TestSQLStoreDeleteRemovesMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "alice")

	keep, err := store.CreateConversation(ctx, "Keep")
	require.NoError(t, err)
	drop, err := store.CreateConversation(ctx, "Drop")
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, drop.ID, "bye", true)
	require.NoError(t, err)

	require.NoError(t, store.DeleteConversation(ctx, drop.ID))

	list, err := store.FetchConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, drop.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestSQLStoreUnauthenticated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "")

	_, err := store.CreateConversation(ctx, "x")
	assert.True(t, errors.Is(err, model.ErrUnauthenticated))

	_, err = store.FetchConversations(ctx, "")
	assert.True(t, errors.Is(err, model.ErrUnauthenticated))

	_, err = store.FetchMessages(ctx, "any")
	assert.True(t, errors.Is(err, model.ErrUnauthenticated))
}

func TestSQLStoreIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	alice, err := OpenSQLite(path, "alice")
	require.NoError(t, err)
	conv, err := alice.CreateConversation(ctx, "Alice's")
	require.NoError(t, err)
	require.NoError(t, alice.Close())

	bob, err := OpenSQLite(path, "bob")
	require.NoError(t, err)
	defer bob.Close()

	list, err := bob.FetchConversations(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = bob.FetchConversations(ctx, "alice")
	assert.True(t, errors.Is(err, model.ErrUnauthenticated))

	_, err = bob.AppendMessage(ctx, conv.ID, "intrusion", true)
	assert.True(t, errors.Is(err, model.ErrStore))
	assert.True(t, errors.Is(bob.UpdateConversationTitle(ctx, conv.ID, "mine"), model.ErrStore))
}

func TestSQLStoreMessageStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "alice")

	conv, err := store.CreateConversation(ctx, "Chat")
	require.NoError(t, err)
	kept, err := store.AppendMessage(ctx, conv.ID, "kept", true)
	require.NoError(t, err)
	lost, err := store.AppendMessage(ctx, conv.ID, "lost", true)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		status  model.MessageStatus
		wantErr bool
	}{
		{"sent to delivered", kept.ID, model.StatusDelivered, false},
		{"delivered is final", kept.ID, model.StatusFailed, true},
		{"sent to failed", lost.ID, model.StatusFailed, false},
		{"failed is final", lost.ID, model.StatusSent, true},
		{"unknown message", "missing", model.StatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.UpdateMessageStatus(ctx, tt.id, tt.status)
			if tt.wantErr {
				assert.True(t, errors.Is(err, model.ErrStore), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}

	messages, err := store.FetchMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, model.StatusDelivered, messages[0].Status)
	assert.Equal(t, model.StatusFailed, messages[1].Status)

	assert.True(t, errors.Is(store.DeleteMessage(ctx, kept.ID), model.ErrStore), "delivered messages are kept")
	require.NoError(t, store.DeleteMessage(ctx, lost.ID))
	messages, err = store.FetchMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "kept", messages[0].Content)
}

func TestSQLStoreUnknownConversation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "alice")

	_, err := store.AppendMessage(ctx, "missing", "hi", true)
	assert.True(t, errors.Is(err, model.ErrStore))
	assert.True(t, errors.Is(store.DeleteConversation(ctx, "missing"), model.ErrStore))
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &SQLStore{dialect: DialectSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}
