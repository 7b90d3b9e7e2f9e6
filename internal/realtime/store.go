package realtime

import (
	"context"

	"github.com/casefront/legalchat/backend/internal/model/chat"
	"github.com/casefront/legalchat/backend/internal/store"
)

// PublishingStore decorates a ChatStore so that every successfully
// persisted message is announced on the broker. The write is durable
// before the push fires.
type PublishingStore struct {
	store.ChatStore
	broker *Broker
}

// NewPublishingStore wraps inner so writes publish to broker.
func NewPublishingStore(inner store.ChatStore, broker *Broker) *PublishingStore {
	return &PublishingStore{ChatStore: inner, broker: broker}
}

// PersistMessage persists via the inner store, then publishes the
// confirmed row.
func (s *PublishingStore) PersistMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	confirmed, err := s.ChatStore.PersistMessage(ctx, msg)
	if err != nil {
		return chat.Message{}, err
	}
	s.broker.Publish(confirmed)
	return confirmed, nil
}
