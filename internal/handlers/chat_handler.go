// File: internal/handlers/chat_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-pdfchat/internal/middleware"
	"github.com/iyunix/go-pdfchat/internal/render"
	"github.com/iyunix/go-pdfchat/internal/services"
	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
)

type ChatHandler struct {
	chatService    *services.ChatService
	markdown       *render.Markdown
	maxUploadBytes int64
	logger         Logger
}

func NewChatHandler(cs *services.ChatService, md *render.Markdown, maxUploadBytes int64, logger Logger) (*ChatHandler, error) {
	if cs == nil {
		return nil, errors.New("chat service is required")
	}
	if maxUploadBytes <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	if md == nil {
		md = render.NewMarkdown()
	}
	return &ChatHandler{
		chatService:    cs,
		markdown:       md,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}, nil
}

// SendMessage accepts either a JSON body or a multipart form carrying a PDF.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	const op = "send_message"
	userID := middleware.UserIDFromContext(r.Context())

	var req sendMessageRequest
	var file *chatservice.Attachment

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		req, file, err = readMultipartMessage(w, r, h.maxUploadBytes)
		if errors.Is(err, errUploadTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, chatservice.KindValidationFailed,
				fmt.Sprintf("attachment exceeds %d bytes", h.maxUploadBytes))
			return
		}
		if err != nil {
			writeChatError(w, h.logger, chatservice.NewValidationError(op, err.Error()))
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, 2*maxFieldBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeChatError(w, h.logger, chatservice.NewValidationError(op, "invalid JSON body"))
			return
		}
	}

	if err := validateRequest(op, req); err != nil {
		writeChatError(w, h.logger, err)
		return
	}
	if req.ChatID != "" {
		if err := validateChatID(op, req.ChatID); err != nil {
			writeChatError(w, h.logger, err)
			return
		}
	}

	result, err := h.chatService.SendMessage(r.Context(), chatservice.SendMessageRequest{
		UserID: userID,
		Body:   req.Body,
		ChatID: req.ChatID,
		File:   file,
	})
	if err != nil {
		writeChatError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSendMessageResponse(result))
}

// GetUserChats lists the caller's chats, most recently active first.
func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatService.GetUserChats(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeChatError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponses(chats))
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	const op = "create_chat"
	var req createChatRequest
	// an empty body creates an untitled chat
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeChatError(w, h.logger, chatservice.NewValidationError(op, "invalid JSON body"))
		return
	}
	if err := validateRequest(op, req); err != nil {
		writeChatError(w, h.logger, err)
		return
	}

	created, err := h.chatService.CreateChat(r.Context(), middleware.UserIDFromContext(r.Context()), req.Title)
	if err != nil {
		writeChatError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChatResponse(*created))
}

// GetChatMessages returns a chat's messages in order. With ?format=html every
// message also carries its body rendered from Markdown.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	const op = "list_messages"
	chatID := mux.Vars(r)["id"]
	if err := validateChatID(op, chatID); err != nil {
		writeChatError(w, h.logger, err)
		return
	}

	var md *render.Markdown
	switch format := r.URL.Query().Get("format"); format {
	case "", "text":
	case "html":
		md = h.markdown
	default:
		writeChatError(w, h.logger, chatservice.NewValidationError(op, "format must be text or html"))
		return
	}

	messages, err := h.chatService.GetChatMessages(r.Context(), middleware.UserIDFromContext(r.Context()), chatID)
	if err != nil {
		writeChatError(w, h.logger, err)
		return
	}

	out, err := toMessageResponses(messages, md)
	if err != nil {
		h.logger.Error("[ChatHandler] markdown rendering failed", "chat_id", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, chatservice.KindStorageUnavailable, "could not render messages")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	const op = "rename_chat"
	chatID := mux.Vars(r)["id"]
	if err := validateChatID(op, chatID); err != nil {
		writeChatError(w, h.logger, err)
		return
	}

	var req renameChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeChatError(w, h.logger, chatservice.NewValidationError(op, "invalid JSON body"))
		return
	}
	if err := validateRequest(op, req); err != nil {
		writeChatError(w, h.logger, err)
		return
	}

	if err := h.chatService.RenameChat(r.Context(), middleware.UserIDFromContext(r.Context()), chatID, req.Title); err != nil {
		writeChatError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	const op = "delete_chat"
	chatID := mux.Vars(r)["id"]
	if err := validateChatID(op, chatID); err != nil {
		writeChatError(w, h.logger, err)
		return
	}

	if err := h.chatService.DeleteChat(r.Context(), middleware.UserIDFromContext(r.Context()), chatID); err != nil {
		writeChatError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent) // 204 No Content is a standard success response for DELETE
}
