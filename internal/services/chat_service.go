package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iyunix/go-pdfchat/internal/domain"
	"github.com/iyunix/go-pdfchat/internal/repository/chat"
	"github.com/iyunix/go-pdfchat/internal/repository/message"
	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
)

const maxTitleRunes = 200

// ChatService is what the HTTP layer talks to: sending messages through the
// orchestrator plus listing, renaming and deleting chats.
type ChatService struct {
	config       *chatservice.Config
	chatRepo     chat.ChatRepository
	messageRepo  message.MessageRepository
	orchestrator *chatservice.Orchestrator
	logger       Logger
	now          func() time.Time
}

func NewChatService(
	config *chatservice.Config,
	chatRepo chat.ChatRepository,
	messageRepo message.MessageRepository,
	completions chatservice.CompletionProvider,
	extractor chatservice.Extractor,
	blobs chatservice.BlobStore,
	logger Logger,
) (*ChatService, error) {
	if chatRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "chat repository is required")
	}
	if messageRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "message repository is required")
	}
	if completions == nil {
		return nil, chatservice.NewValidationError("constructor", "completion provider is required")
	}
	if extractor == nil {
		return nil, chatservice.NewValidationError("constructor", "extractor is required")
	}
	if blobs == nil {
		return nil, chatservice.NewValidationError("constructor", "blob store is required")
	}
	if config == nil {
		config = chatservice.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, chatservice.NewValidationError("config", err.Error())
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}

	return &ChatService{
		config:       config,
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		orchestrator: chatservice.NewOrchestrator(config, chatRepo, messageRepo, completions, extractor, blobs, logger),
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (s *ChatService) SendMessage(ctx context.Context, req chatservice.SendMessageRequest) (*chatservice.SendMessageResult, error) {
	return s.orchestrator.SendMessage(ctx, req)
}

// CreateChat starts an empty chat. A blank title falls back to the default.
func (s *ChatService) CreateChat(ctx context.Context, userID, title string) (*domain.Chat, error) {
	const op = "create_chat"
	if userID == "" {
		return nil, chatservice.NewUnauthorizedError(op)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultChatTitle
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, chatservice.NewValidationError(op, "chat title is too long")
	}

	created, err := s.chatRepo.Create(ctx, userID, title)
	if err != nil {
		return nil, chatservice.FromStoreError(op, "", err)
	}
	s.logger.Info("chat created", "chat_id", created.ID, "user_id", userID)
	return created, nil
}

func (s *ChatService) GetUserChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	const op = "list_chats"
	if userID == "" {
		return nil, chatservice.NewUnauthorizedError(op)
	}
	chats, err := s.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, chatservice.FromStoreError(op, "", err)
	}
	return chats, nil
}

func (s *ChatService) GetChatMessages(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	const op = "list_messages"
	if userID == "" {
		return nil, chatservice.NewUnauthorizedError(op)
	}
	if chatID == "" {
		return nil, chatservice.NewValidationError(op, "chat id is required")
	}
	messages, err := s.messageRepo.ListByChat(ctx, userID, chatID)
	if err != nil {
		return nil, chatservice.FromStoreError(op, chatID, err)
	}
	return messages, nil
}

// RenameChat sets a new title and counts as activity on the chat.
func (s *ChatService) RenameChat(ctx context.Context, userID, chatID, title string) error {
	const op = "rename_chat"
	if userID == "" {
		return chatservice.NewUnauthorizedError(op)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return chatservice.NewValidationError(op, "chat title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return chatservice.NewValidationError(op, "chat title is too long")
	}

	now := s.now()
	if err := s.chatRepo.Update(ctx, userID, chatID, chat.ChatUpdate{Title: &title, LastUpdatedAt: &now}); err != nil {
		return chatservice.FromStoreError(op, chatID, err)
	}
	s.logger.Info("chat renamed", "chat_id", chatID, "user_id", userID)
	return nil
}

func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID string) error {
	const op = "delete_chat"
	if userID == "" {
		return chatservice.NewUnauthorizedError(op)
	}
	if err := s.chatRepo.Delete(ctx, userID, chatID); err != nil {
		return chatservice.FromStoreError(op, chatID, err)
	}
	return nil
}
