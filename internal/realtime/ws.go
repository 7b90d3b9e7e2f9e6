package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// FeedHandler re-exports the broker's insert feed to websocket clients so
// browsers receive realtime pushes for a chat they have open.
type FeedHandler struct {
	broker   *Broker
	upgrader websocket.Upgrader
}

// NewFeedHandler creates a websocket feed handler over the broker.
func NewFeedHandler(broker *Broker) *FeedHandler {
	return &FeedHandler{
		broker: broker,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the feed endpoint.
func (h *FeedHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{chatID}", h.handleFeed)
}

func (h *FeedHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		http.Error(w, "chatID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[realtime] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Buffered so a slow client never blocks Publish; overflow drops the
	// connection rather than the whole feed.
	inserts := make(chan chat.Message, 64)
	closed := make(chan struct{})
	var closeOnce sync.Once
	dropFeed := func() { closeOnce.Do(func() { close(closed) }) }

	sub := h.broker.Subscribe(chatID, func(msg chat.Message) {
		select {
		case inserts <- msg:
		default:
			dropFeed()
		}
	})
	defer sub.Unsubscribe()

	// Read pump: detect client disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				dropFeed()
				return
			}
		}
	}()

	log.Printf("[realtime] feed opened for chat=%s", chatID)
	for {
		select {
		case msg := <-inserts:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[realtime] feed write failed for chat=%s: %v", chatID, err)
				return
			}
		case <-closed:
			log.Printf("[realtime] feed closed for chat=%s", chatID)
			return
		case <-r.Context().Done():
			return
		}
	}
}
