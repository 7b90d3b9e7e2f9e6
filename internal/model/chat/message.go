package chat

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies which side of the conversation authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Kind discriminates confirmed rows from optimistic stand-ins. Only
// confirmed messages exist in the durable store; the other kinds live in a
// session timeline until a confirmed copy supersedes them.
type Kind string

const (
	KindConfirmed Kind = "confirmed"
	KindPending   Kind = "pending"
	KindStreaming Kind = "streaming"
)

// TypingIndicator is the sentinel text a streaming placeholder carries
// before the first token arrives. Clients render it as a typing animation.
const TypingIndicator = "..."

// Message is one turn in a chat timeline. Text is immutable once the
// message is confirmed; a streaming placeholder's text is rewritten as
// tokens accumulate.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    Sender    `json:"sender"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	FilePath  string    `json:"filePath,omitempty"`
	FileName  string    `json:"fileName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Temporary reports whether the message is an optimistic stand-in awaiting
// reconciliation with a confirmed copy.
func (m Message) Temporary() bool {
	return m.Kind != KindConfirmed
}

// NewPendingUserMessage mints the optimistic user message appended before
// the durable store has acknowledged the write. The temp- id prefix is kept
// for client visibility; Kind is the authoritative discriminator.
func NewPendingUserMessage(chatID, text, filePath, fileName string) Message {
	return Message{
		ID:        "temp-user-" + uuid.NewString(),
		ChatID:    chatID,
		Sender:    SenderUser,
		Kind:      KindPending,
		Text:      text,
		FilePath:  filePath,
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
	}
}

// NewStreamingPlaceholder mints the single in-flight AI placeholder for a
// streaming response.
func NewStreamingPlaceholder(chatID string) Message {
	return Message{
		ID:        "temp-ai-" + uuid.NewString(),
		ChatID:    chatID,
		Sender:    SenderAI,
		Kind:      KindStreaming,
		Text:      TypingIndicator,
		CreatedAt: time.Now().UTC(),
	}
}
