package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/iyunix/go-pdfchat/internal/middleware"
	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
)

// LogHandler forwards log lines reported by the browser client into the
// server log.
type LogHandler struct {
	logger Logger
}

func NewLogHandler(logger Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// LogClientEvent handles incoming log requests from the frontend.
func (h *LogHandler) LogClientEvent(w http.ResponseWriter, r *http.Request) {
	const op = "client_log"
	var payload logRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&payload); err != nil {
		writeChatError(w, h.logger, chatservice.NewValidationError(op, "invalid JSON body"))
		return
	}
	if err := validateRequest(op, payload); err != nil {
		writeChatError(w, h.logger, err)
		return
	}

	fields := []interface{}{
		"user_id", middleware.UserIDFromContext(r.Context()),
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"context", payload.Context,
	}
	msg := "[Client] " + payload.Message
	switch payload.Level {
	case "debug":
		h.logger.Debug(msg, fields...)
	case "warn":
		h.logger.Warn(msg, fields...)
	case "error":
		h.logger.Error(msg, fields...)
	default:
		h.logger.Info(msg, fields...)
	}

	w.WriteHeader(http.StatusNoContent)
}
