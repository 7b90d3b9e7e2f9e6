package files

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/casefront/legalchat/backend/internal/storage"
	"github.com/casefront/legalchat/backend/pkg/utils"
)

const maxUploadBytes = 32 << 20

// Handler exposes the attachment store over HTTP.
type Handler struct {
	files *storage.DiskStore
}

// New creates the files handler.
func New(files *storage.DiskStore) *Handler {
	return &Handler{files: files}
}

// RegisterRoutes mounts the upload and download routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/files", h.handleUpload)
	r.Get("/files/*", h.handleDownload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	ownerID := r.FormValue("userId")
	if ownerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	path, err := h.files.Upload(ownerID, header.Filename, file)
	if err != nil {
		log.Printf("[files] upload failed for user=%s: %v", ownerID, err)
		utils.RespondError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"path": path,
		"url":  h.files.ResolveURL(path),
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")

	rc, err := h.files.Open(rel)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, storage.ErrInvalidPath) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, "file not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("[files] download failed for %s: %v", rel, err)
	}
}
