package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/casefront/legalchat/backend/internal/model/chat"
	"github.com/casefront/legalchat/backend/internal/session"
	"github.com/casefront/legalchat/backend/pkg/utils"
)

// maxUploadBytes caps the multipart body of a submit request.
const maxUploadBytes = 32 << 20

// Handler drives Controller.Submit and mirrors the session state back to
// the client as Server-Sent Events: one "update" event per timeline change,
// then a terminal "end" event carrying the failed flag.
type Handler struct {
	registry *session.Registry
}

// New creates the stream handler.
func New(registry *session.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes mounts the submit endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chats/{chatID}/submit", h.handleSubmit)
}

// StreamEvent is one SSE payload.
type StreamEvent struct {
	Event    string         `json:"event"`
	ChatID   string         `json:"chatId,omitempty"`
	Messages []chat.Message `json:"messages,omitempty"`
	Failed   bool           `json:"failed,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	chatID := chi.URLParam(r, "chatID")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	userID := r.FormValue("userId")
	text := r.FormValue("text")
	if userID == "" {
		utils.RespondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	var attachment *session.Attachment
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		attachment = &session.Attachment{Name: header.Filename, Reader: file}
	}

	ctrl, err := h.registry.Controller(r.Context(), chatID, userID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, StreamEvent{Event: "start", ChatID: chatID})

	updates, cancel := ctrl.Watch()
	defer cancel()

	// The submit runs on a detached context: an already-started response
	// stream runs to completion even if this client goes away.
	done := make(chan error, 1)
	go func() {
		done <- ctrl.Submit(context.WithoutCancel(r.Context()), text, attachment)
	}()

	for {
		select {
		case <-updates:
			utils.SendSSEChunk(w, flusher, StreamEvent{
				Event:    "update",
				ChatID:   chatID,
				Messages: ctrl.Messages(),
			})
		case err := <-done:
			event := StreamEvent{
				Event:    "end",
				ChatID:   chatID,
				Messages: ctrl.Messages(),
				Failed:   ctrl.Failed(),
			}
			if err != nil {
				log.Printf("[stream] submit failed for chat=%s: %v", chatID, err)
				event.Error = fmt.Sprintf("submit failed: %v", err)
			}
			utils.SendSSEChunk(w, flusher, event)
			return
		case <-r.Context().Done():
			log.Printf("[stream] client disconnected for chat=%s", chatID)
			return
		}
	}
}
