package ui

import (
	"relaychat/model"
	"relaychat/orchestrator"
	"relaychat/storage"
)

// replyMsg carries the result of a chat.Session.Send.
type replyMsg struct {
	reply model.Message
	err   error
}

type titleChangedMsg struct {
	conversationID string
	title          string
}

type orchestratorEventMsg orchestrator.Event

type conversationsMsg struct {
	conversations []model.Conversation
	err           error
}

// reloadMsg asks the view to re-read the session after a conversation change.
type reloadMsg struct {
	status string
	err    error
}

type searchResultsMsg struct {
	query   string
	matches []storage.MessageMatch
	err     error
}

type markdownRenderedMsg struct {
	messageID string
	rendered  string
}
