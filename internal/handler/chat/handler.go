package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatModel "github.com/casefront/legalchat/backend/internal/model/chat"
	"github.com/casefront/legalchat/backend/internal/session"
	"github.com/casefront/legalchat/backend/internal/store"
)

// Handler exposes chat creation, listing and history over HTTP.
type Handler struct {
	store    store.ChatStore
	registry *session.Registry
}

// New creates the chat handler.
func New(chatStore store.ChatStore, registry *session.Registry) *Handler {
	return &Handler{store: chatStore, registry: registry}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chats", h.handleCreateChat)
	r.Get("/chats", h.handleListChats)
	r.Get("/chats/{chatID}/messages", h.handleMessages)
}

// handleCreateChat provisions a chat. An optional firstMessage is persisted
// immediately, covering the landing-page flow where the user types before
// the chat view exists; the first open of the chat then triggers the AI
// reply.
func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID       string `json:"userId"`
		Title        string `json:"title"`
		FirstMessage string `json:"firstMessage"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	created, err := h.store.CreateChat(r.Context(), payload.UserID, payload.Title)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if payload.FirstMessage != "" {
		if _, err := h.store.PersistMessage(r.Context(), chatModel.Message{
			ChatID: created.ID,
			Sender: chatModel.SenderUser,
			Text:   payload.FirstMessage,
		}); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	respondJSON(w, http.StatusCreated, created)
}

// handleListChats returns the chats owned by a user.
func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	infos, err := h.store.ListChatsForUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, infos)
}

// handleMessages returns the synchronized timeline for a chat. Going
// through the session registry means the first open of a chat wires its
// realtime listener and evaluates the first-message trigger.
func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	owned, err := h.store.GetChat(r.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		respondError(w, status, err.Error())
		return
	}
	if owned.UserID != userID {
		respondError(w, http.StatusForbidden, "chat belongs to another user")
		return
	}

	ctrl, err := h.registry.Controller(r.Context(), chatID, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"messages":  ctrl.Messages(),
		"isLoading": ctrl.IsLoading(),
		"failed":    ctrl.Failed(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
