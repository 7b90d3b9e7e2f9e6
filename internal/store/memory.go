package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// MemoryStore implements ChatStore with mutex-guarded maps, suitable for
// tests and single-process development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	chats    map[string]chat.Chat
	messages map[string][]chat.Message
}

// NewMemoryStore returns an empty in-memory chat store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[string]chat.Chat),
		messages: make(map[string][]chat.Message),
	}
}

// CreateChat provisions a chat owned by the given user.
func (s *MemoryStore) CreateChat(_ context.Context, userID, title string) (chat.Chat, error) {
	c := chat.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.chats[c.ID] = c
	s.messages[c.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return c, nil
}

// GetChat retrieves a chat by identifier.
func (s *MemoryStore) GetChat(_ context.Context, chatID string) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return chat.Chat{}, ErrChatNotFound
	}
	return c, nil
}

// ListChatsForUser returns the user's chats, newest first.
func (s *MemoryStore) ListChatsForUser(_ context.Context, userID string) ([]chat.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]chat.Info, 0)
	for id, c := range s.chats {
		if c.UserID != userID {
			continue
		}
		infos = append(infos, chat.Info{Chat: c, MessageCount: int64(len(s.messages[id]))})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

// FetchAllMessages returns the chat's messages in ascending creation order.
func (s *MemoryStore) FetchAllMessages(_ context.Context, chatID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	sort.SliceStable(copied, func(i, j int) bool { return copied[i].CreatedAt.Before(copied[j].CreatedAt) })
	return copied, nil
}

// MessageCount returns the number of persisted messages for the chat.
func (s *MemoryStore) MessageCount(_ context.Context, chatID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[chatID]
	if !ok {
		return 0, ErrChatNotFound
	}
	return int64(len(messages)), nil
}

// LatestMessage returns the most recently created message, or nil for an
// empty chat.
func (s *MemoryStore) LatestMessage(ctx context.Context, chatID string) (*chat.Message, error) {
	messages, err := s.FetchAllMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	latest := messages[len(messages)-1]
	return &latest, nil
}

// PersistMessage durably appends a message and returns the confirmed row
// with a server-assigned id and timestamp.
func (s *MemoryStore) PersistMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	if strings.TrimSpace(msg.Text) == "" && msg.FilePath == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[msg.ChatID]; !ok {
		return chat.Message{}, ErrChatNotFound
	}

	msg.ID = uuid.NewString()
	msg.Kind = chat.KindConfirmed
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
	return msg, nil
}

// Close implements ChatStore; a memory store holds no resources.
func (s *MemoryStore) Close() error { return nil }
