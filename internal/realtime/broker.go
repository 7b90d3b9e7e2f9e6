package realtime

import (
	"sync"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// Broker fans out confirmed-message notifications per chat id. Delivery is
// synchronous and in publish order; handlers must be fast and must tolerate
// duplicate delivery.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[int]func(chat.Message)
	next int
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]func(chat.Message))}
}

// Subscription is a handle for one registered listener.
type Subscription struct {
	broker *Broker
	chatID string
	id     int
	once   sync.Once
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		if handlers, ok := s.broker.subs[s.chatID]; ok {
			delete(handlers, s.id)
			if len(handlers) == 0 {
				delete(s.broker.subs, s.chatID)
			}
		}
	})
}

// Subscribe registers fn for every message confirmed on the given chat.
func (b *Broker) Subscribe(chatID string, fn func(chat.Message)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	if b.subs[chatID] == nil {
		b.subs[chatID] = make(map[int]func(chat.Message))
	}
	b.subs[chatID][id] = fn

	return &Subscription{broker: b, chatID: chatID, id: id}
}

// Publish delivers msg to every listener subscribed to its chat.
func (b *Broker) Publish(msg chat.Message) {
	b.mu.RLock()
	handlers := make([]func(chat.Message), 0, len(b.subs[msg.ChatID]))
	for _, fn := range b.subs[msg.ChatID] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(msg)
	}
}
