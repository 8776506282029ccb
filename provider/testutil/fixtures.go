package testutil

import (
	"fmt"
	"time"

	"relaychat/model"
)

// TestHistory returns a sample conversation for testing, alternating user
// and assistant turns, oldest first.
func TestHistory() []model.Message {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return []model.Message{
		{ID: "m1", ConversationID: "c1", Content: "Hello, how are you?", IsFromUser: true, Timestamp: base, Status: model.StatusSent},
		{ID: "m2", ConversationID: "c1", Content: "I'm doing well, thank you!", IsFromUser: false, Timestamp: base.Add(time.Second), Status: model.StatusDelivered},
		{ID: "m3", ConversationID: "c1", Content: "Can you help me with a task?", IsFromUser: true, Timestamp: base.Add(2 * time.Second), Status: model.StatusSent},
		{ID: "m4", ConversationID: "c1", Content: "Of course. What do you need?", IsFromUser: false, Timestamp: base.Add(3 * time.Second), Status: model.StatusDelivered},
	}
}

// LongHistory returns n alternating messages, numbered "message 1".."message n".
func LongHistory(n int) []model.Message {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	history := make([]model.Message, n)
	for i := range history {
		history[i] = model.Message{
			ID:             fmt.Sprintf("m%d", i+1),
			ConversationID: "c1",
			Content:        fmt.Sprintf("message %d", i+1),
			IsFromUser:     i%2 == 0,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
			Status:         model.StatusSent,
		}
	}
	return history
}

// EmptyHistory returns an empty message slice for edge case testing
func EmptyHistory() []model.Message {
	return []model.Message{}
}
