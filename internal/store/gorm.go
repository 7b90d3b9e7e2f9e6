package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// chatRow is the GORM schema for a conversation thread.
type chatRow struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	Title     string `gorm:"type:text"`
	CreatedAt time.Time
}

func (chatRow) TableName() string { return "chats" }

// messageRow is the GORM schema for one confirmed message. Optimistic and
// streaming stand-ins never reach the database.
type messageRow struct {
	ID        string `gorm:"primaryKey"`
	ChatID    string `gorm:"index;not null"`
	Sender    string `gorm:"not null"`
	Text      string `gorm:"type:text"`
	FilePath  string
	FileName  string
	CreatedAt time.Time `gorm:"index"`
}

func (messageRow) TableName() string { return "messages" }

// GormStore implements ChatStore on a SQLite database via GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens (or creates) the SQLite database at path and migrates
// the schema.
func NewGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&chatRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &GormStore{db: db}, nil
}

// CreateChat provisions a chat owned by the given user.
func (s *GormStore) CreateChat(ctx context.Context, userID, title string) (chat.Chat, error) {
	row := chatRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return chat.Chat{}, fmt.Errorf("failed to create chat: %w", err)
	}

	return toChat(row), nil
}

// GetChat retrieves a chat by identifier.
func (s *GormStore) GetChat(ctx context.Context, chatID string) (chat.Chat, error) {
	var row chatRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return chat.Chat{}, fmt.Errorf("failed to load chat: %w", err)
	}
	return toChat(row), nil
}

// ListChatsForUser returns the user's chats with message counts, newest first.
func (s *GormStore) ListChatsForUser(ctx context.Context, userID string) ([]chat.Info, error) {
	var rows []chatRow
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	infos := make([]chat.Info, 0, len(rows))
	for _, row := range rows {
		var count int64
		if err := s.db.WithContext(ctx).Model(&messageRow{}).Where("chat_id = ?", row.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count messages for chat %s: %w", row.ID, err)
		}
		infos = append(infos, chat.Info{Chat: toChat(row), MessageCount: count})
	}
	return infos, nil
}

// FetchAllMessages returns the chat's messages in ascending creation order.
func (s *GormStore) FetchAllMessages(ctx context.Context, chatID string) ([]chat.Message, error) {
	if err := s.requireChat(ctx, chatID); err != nil {
		return nil, err
	}

	var rows []messageRow
	if err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row))
	}
	return messages, nil
}

// MessageCount returns the number of persisted messages for the chat.
func (s *GormStore) MessageCount(ctx context.Context, chatID string) (int64, error) {
	if err := s.requireChat(ctx, chatID); err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&messageRow{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// LatestMessage returns the most recently created message, or nil for an
// empty chat.
func (s *GormStore) LatestMessage(ctx context.Context, chatID string) (*chat.Message, error) {
	if err := s.requireChat(ctx, chatID); err != nil {
		return nil, err
	}

	var row messageRow
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest message: %w", err)
	}

	msg := toMessage(row)
	return &msg, nil
}

// PersistMessage durably appends a message and returns the confirmed row
// with a server-assigned id and timestamp.
func (s *GormStore) PersistMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if strings.TrimSpace(msg.Text) == "" && msg.FilePath == "" {
		return chat.Message{}, ErrEmptyMessage
	}
	if err := s.requireChat(ctx, msg.ChatID); err != nil {
		return chat.Message{}, err
	}

	row := messageRow{
		ID:        uuid.NewString(),
		ChatID:    msg.ChatID,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		FilePath:  msg.FilePath,
		FileName:  msg.FileName,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return chat.Message{}, fmt.Errorf("failed to persist message: %w", err)
	}

	return toMessage(row), nil
}

// Close releases the underlying database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) requireChat(ctx context.Context, chatID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&chatRow{}).Where("id = ?", chatID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check chat %s: %w", chatID, err)
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}

func toChat(row chatRow) chat.Chat {
	return chat.Chat{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
	}
}

func toMessage(row messageRow) chat.Message {
	return chat.Message{
		ID:        row.ID,
		ChatID:    row.ChatID,
		Sender:    chat.Sender(row.Sender),
		Kind:      chat.KindConfirmed,
		Text:      row.Text,
		FilePath:  row.FilePath,
		FileName:  row.FileName,
		CreatedAt: row.CreatedAt,
	}
}
