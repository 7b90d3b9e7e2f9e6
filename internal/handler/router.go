package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/casefront/legalchat/backend/internal/handler/chat"
	filesHandler "github.com/casefront/legalchat/backend/internal/handler/files"
	streamHandler "github.com/casefront/legalchat/backend/internal/handler/stream"
	middlewarePkg "github.com/casefront/legalchat/backend/internal/middleware"
	"github.com/casefront/legalchat/backend/internal/realtime"
	"github.com/casefront/legalchat/backend/internal/session"
	"github.com/casefront/legalchat/backend/internal/storage"
	"github.com/casefront/legalchat/backend/internal/store"
)

// NewRouter wires HTTP routes to core services. The file store is optional;
// without it the upload and download routes are not mounted. Submit works
// without an AI provider too: messages persist and sync, no reply streams.
func NewRouter(chatStore store.ChatStore, registry *session.Registry, files *storage.DiskStore, broker *realtime.Broker) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatH := chatHandler.New(chatStore, registry)
	feedH := realtime.NewFeedHandler(broker)
	streamH := streamHandler.New(registry)

	r.Route("/api", func(api chi.Router) {
		chatH.RegisterRoutes(api)
		feedH.RegisterRoutes(api)
		streamH.RegisterRoutes(api)

		if files != nil {
			filesH := filesHandler.New(files)
			filesH.RegisterRoutes(api)
		}
	})

	return r
}
