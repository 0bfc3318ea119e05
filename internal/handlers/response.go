// File: internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
)

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, status int, kind chatservice.Kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: string(kind)})
}

// writeChatError maps the error taxonomy onto HTTP status codes. Errors
// outside the taxonomy are reported as storage failures and their details
// stay in the log.
func writeChatError(w http.ResponseWriter, logger Logger, err error) {
	var chatErr *chatservice.ChatError
	if !errors.As(err, &chatErr) {
		logger.Error("[Handlers] unclassified error", "error", err)
		writeError(w, http.StatusServiceUnavailable, chatservice.KindStorageUnavailable, "storage unavailable")
		return
	}

	status := statusForKind(chatErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("[Handlers] request failed", "kind", string(chatErr.Kind), "operation", chatErr.Operation, "error", err)
	}
	writeError(w, status, chatErr.Kind, chatErr.Message)
}

func statusForKind(kind chatservice.Kind) int {
	switch kind {
	case chatservice.KindUnauthorized:
		return http.StatusUnauthorized
	case chatservice.KindNotFound:
		return http.StatusNotFound
	case chatservice.KindValidationFailed:
		return http.StatusBadRequest
	case chatservice.KindGenerationFailed:
		return http.StatusBadGateway
	case chatservice.KindExtractionFailed:
		return http.StatusUnprocessableEntity
	case chatservice.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

// NotFound and MethodNotAllowed answer unknown routes in the same JSON shape
// as every other error.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, chatservice.KindNotFound, "route not found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, chatservice.KindValidationFailed, "method not allowed")
}
