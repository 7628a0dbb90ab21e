package chat

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Turn is one message inside a conversation. Turns are immutable once
// appended and ordered by append time.
type Turn struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type Conversation []Turn

// HistoryIndex is the full persisted chat state: userID -> chatID -> turns.
type HistoryIndex map[string]map[string]Conversation

func newTurn(sender, text string, at time.Time) Turn {
	return Turn{Sender: sender, Text: text, Timestamp: at.UTC().Format(time.RFC3339)}
}
