package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-pdfchat/internal/middleware"
	"github.com/iyunix/go-pdfchat/internal/services/blob"
	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
)

var blobHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// BlobLoader reads back attachments saved during a send.
type BlobLoader interface {
	Load(ctx context.Context, ownerID, hash string) (*blob.Blob, error)
}

type FileHandler struct {
	blobs  BlobLoader
	logger Logger
}

func NewFileHandler(blobs BlobLoader, logger Logger) *FileHandler {
	return &FileHandler{blobs: blobs, logger: logger}
}

// GetFile serves an attachment to the user who uploaded it. Everyone else
// gets 404, the same as for a hash that was never stored.
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	const op = "get_file"
	hash := mux.Vars(r)["hash"]
	if !blobHashPattern.MatchString(hash) {
		writeChatError(w, h.logger, chatservice.NewValidationError(op, "malformed file id"))
		return
	}

	stored, err := h.blobs.Load(r.Context(), middleware.UserIDFromContext(r.Context()), hash)
	if errors.Is(err, blob.ErrBlobNotFound) {
		writeError(w, http.StatusNotFound, chatservice.KindNotFound, "file not found")
		return
	}
	if err != nil {
		writeChatError(w, h.logger, chatservice.NewStorageError(op, err))
		return
	}

	w.Header().Set("Content-Type", stored.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(stored.Data)))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(stored.Data)
}
