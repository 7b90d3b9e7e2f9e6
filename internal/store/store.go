package store

import (
	"context"
	"errors"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrEmptyMessage = errors.New("message has no content")
)

// ChatStore is the durable collaborator behind a session controller. A
// message returned by PersistMessage is the acknowledged row: it carries
// the server-assigned id and timestamp and is safe to reconcile against
// optimistic state immediately.
type ChatStore interface {
	CreateChat(ctx context.Context, userID, title string) (chat.Chat, error)
	GetChat(ctx context.Context, chatID string) (chat.Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]chat.Info, error)

	FetchAllMessages(ctx context.Context, chatID string) ([]chat.Message, error)
	MessageCount(ctx context.Context, chatID string) (int64, error)
	LatestMessage(ctx context.Context, chatID string) (*chat.Message, error)
	PersistMessage(ctx context.Context, msg chat.Message) (chat.Message, error)

	Close() error
}
