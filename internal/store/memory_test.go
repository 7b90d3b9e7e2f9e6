package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/casefront/legalchat/backend/internal/model/chat"
	"github.com/casefront/legalchat/backend/internal/store"
)

func TestMemoryStorePersistAssignsIdentity(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateChat(ctx, "user-1", "lease review")
	if err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}

	confirmed, err := s.PersistMessage(ctx, chat.Message{
		ID:     "temp-user-1",
		ChatID: created.ID,
		Sender: chat.SenderUser,
		Kind:   chat.KindPending,
		Text:   "Hello",
	})
	if err != nil {
		t.Fatalf("PersistMessage err: %v", err)
	}

	if confirmed.ID == "" || confirmed.ID == "temp-user-1" {
		t.Fatalf("expected a server-assigned id, got %q", confirmed.ID)
	}
	if confirmed.Kind != chat.KindConfirmed {
		t.Fatalf("expected confirmed kind, got %s", confirmed.Kind)
	}
	if confirmed.CreatedAt.IsZero() {
		t.Fatal("expected a server-assigned timestamp")
	}
}

func TestMemoryStoreCountAndLatest(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateChat(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}

	latest, err := s.LatestMessage(ctx, created.ID)
	if err != nil {
		t.Fatalf("LatestMessage err: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil latest for empty chat, got %+v", latest)
	}

	for _, text := range []string{"first", "second"} {
		if _, err := s.PersistMessage(ctx, chat.Message{ChatID: created.ID, Sender: chat.SenderUser, Text: text}); err != nil {
			t.Fatalf("PersistMessage err: %v", err)
		}
	}

	count, err := s.MessageCount(ctx, created.ID)
	if err != nil {
		t.Fatalf("MessageCount err: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	latest, err = s.LatestMessage(ctx, created.ID)
	if err != nil {
		t.Fatalf("LatestMessage err: %v", err)
	}
	if latest == nil || latest.Text != "second" {
		t.Fatalf("expected latest=second, got %+v", latest)
	}
}

func TestMemoryStoreUnknownChat(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	if _, err := s.FetchAllMessages(ctx, "missing"); !errors.Is(err, store.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if _, err := s.PersistMessage(ctx, chat.Message{ChatID: "missing", Sender: chat.SenderUser, Text: "x"}); !errors.Is(err, store.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestMemoryStoreRejectsEmptyMessage(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateChat(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}

	if _, err := s.PersistMessage(ctx, chat.Message{ChatID: created.ID, Sender: chat.SenderUser, Text: "   "}); !errors.Is(err, store.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestMemoryStoreListChatsForUser(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	mine, err := s.CreateChat(ctx, "user-1", "mine")
	if err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}
	if _, err := s.CreateChat(ctx, "user-2", "theirs"); err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}
	if _, err := s.PersistMessage(ctx, chat.Message{ChatID: mine.ID, Sender: chat.SenderUser, Text: "hi"}); err != nil {
		t.Fatalf("PersistMessage err: %v", err)
	}

	infos, err := s.ListChatsForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListChatsForUser err: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(infos))
	}
	if infos[0].ID != mine.ID || infos[0].MessageCount != 1 {
		t.Fatalf("unexpected listing: %+v", infos[0])
	}
}
