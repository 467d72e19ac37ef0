package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/yugmi/sense-api/internal/storage"
	"go.uber.org/zap"
)

// SignedFileStore is an object store that serves its own signed links
type SignedFileStore interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	VerifyToken(key, token string) error
}

// FileHandler serves locally stored media behind storage-signed tokens
type FileHandler struct {
	store  SignedFileStore
	logger *zap.Logger
}

func NewFileHandler(store SignedFileStore, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		store:  store,
		logger: logger,
	}
}

// Serve godoc
// @Summary Download a stored object
// @Description Only available with local storage. The token comes from a signed URL.
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Download token"
// @Success 200 {file} binary
// @Failure 403 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Router /files/{key} [get]
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	token := r.URL.Query().Get("token")
	if key == "" || token == "" {
		respondWithError(w, http.StatusForbidden, "Download token required")
		return
	}

	if err := h.store.VerifyToken(key, token); err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			respondWithError(w, http.StatusBadRequest, "Invalid file path")
			return
		}
		respondWithError(w, http.StatusForbidden, "Invalid or expired download link")
		return
	}

	reader, err := h.store.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "File not found")
			return
		}
		logFailure(h.logger, r, "failed to read stored file", err)
		respondInternalError(w, "Failed to read file", err)
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("file download interrupted", zap.String("key", key), zap.Error(err))
	}
}
