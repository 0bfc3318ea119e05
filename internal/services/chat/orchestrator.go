// File: internal/services/chat/orchestrator.go
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iyunix/go-pdfchat/internal/domain"
	chatrepo "github.com/iyunix/go-pdfchat/internal/repository/chat"
	msgrepo "github.com/iyunix/go-pdfchat/internal/repository/message"
)

// ReplyOffset separates the AI reply from the user message it answers.
const ReplyOffset = time.Millisecond

// Attachment is an uploaded file, fully buffered.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SendMessageRequest struct {
	UserID string
	Body   string
	ChatID string // empty starts a new chat
	File   *Attachment
}

// ChatResolution is either ExistingChat or CreatedChat.
type ChatResolution interface {
	ChatID() string
	isChatResolution()
}

// ExistingChat means the message was appended to a chat the caller named.
type ExistingChat struct{ ID string }

// CreatedChat means the message started a new chat.
type CreatedChat struct{ ID string }

func (c ExistingChat) ChatID() string  { return c.ID }
func (c CreatedChat) ChatID() string   { return c.ID }
func (ExistingChat) isChatResolution() {}
func (CreatedChat) isChatResolution()  {}

type SendMessageResult struct {
	CompletionText string
	Chat           ChatResolution
	UserMessage    *domain.Message
	AIMessage      *domain.Message
}

// Orchestrator runs one send-message request through
// RESOLVE_CHAT -> OBTAIN_COMPLETION -> LOG_EXCHANGE -> RESPOND.
type Orchestrator struct {
	config        *Config
	chatRepo      chatrepo.ChatRepository
	messageRepo   msgrepo.MessageRepository
	completions   CompletionProvider
	extractor     Extractor
	blobs         BlobStore
	contextHelper *ContextHelper
	logger        Logger
	now           func() time.Time
}

func NewOrchestrator(
	config *Config,
	chatRepo chatrepo.ChatRepository,
	messageRepo msgrepo.MessageRepository,
	completions CompletionProvider,
	extractor Extractor,
	blobs BlobStore,
	logger Logger,
) *Orchestrator {
	return &Orchestrator{
		config:        config,
		chatRepo:      chatRepo,
		messageRepo:   messageRepo,
		completions:   completions,
		extractor:     extractor,
		blobs:         blobs,
		contextHelper: NewContextHelper(config, logger),
		logger:        logger,
		now:           time.Now,
	}
}

// SendMessage stores the user's message and the AI reply in a chat and
// returns the reply. On any failure before the exchange is logged, a chat
// created by this call is removed again.
func (o *Orchestrator) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResult, error) {
	const op = "send_message"

	if req.UserID == "" {
		return nil, NewUnauthorizedError(op)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, NewValidationError(op, "message body cannot be empty")
	}
	if req.File != nil {
		if strings.TrimSpace(req.File.Filename) == "" {
			return nil, NewValidationError(op, "attachment filename is required")
		}
		if len(req.File.Data) == 0 {
			return nil, NewValidationError(op, "attachment is empty")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, NewCanceledError(op, err)
	}

	// RESOLVE_CHAT
	resolution, err := o.resolveChat(ctx, op, req.UserID, req.ChatID, body)
	if err != nil {
		return nil, err
	}
	chatID := resolution.ChatID()
	_, created := resolution.(CreatedChat)
	fail := func(err error) (*SendMessageResult, error) {
		if created {
			o.discardChat(ctx, req.UserID, chatID)
		}
		return nil, err
	}

	// OBTAIN_COMPLETION
	prompt := body
	source := domain.SourceChat
	if req.File != nil {
		source = domain.SourcePDF
		text, err := o.extractor.ExtractText(ctx, req.File.Data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fail(NewCanceledError(op, ctxErr))
			}
			o.logger.Warn("[ChatOrchestrator] extraction failed", "chat_id", chatID, "filename", req.File.Filename, "error", err)
			return fail(NewExtractionError(op, err))
		}
		prompt = o.contextHelper.BuildDocumentPrompt(req.File.Filename, text, body)
	}

	completion, err := o.complete(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(NewCanceledError(op, ctxErr))
		}
		o.logger.Error("[ChatOrchestrator] completion failed", "chat_id", chatID, "model", o.config.ChatModel, "error", err)
		return fail(NewGenerationError(op, err))
	}
	if err := ctx.Err(); err != nil {
		return fail(NewCanceledError(op, err))
	}

	// LOG_EXCHANGE runs to completion even if the caller goes away now.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.SaveTimeout)
	defer cancel()

	userMsg := msgrepo.NewMessage{SenderID: req.UserID, Body: body, Source: source}
	aiMsg := msgrepo.NewMessage{SenderID: domain.SenderAI, Body: completion, Source: source}
	if req.File != nil {
		url, err := o.blobs.Save(saveCtx, req.UserID, req.File.Data, req.File.ContentType)
		if err != nil {
			o.logger.Error("[ChatOrchestrator] attachment save failed", "chat_id", chatID, "error", err)
			return fail(NewStorageError(op, err))
		}
		userMsg.AttachmentFilename = req.File.Filename
		userMsg.AttachmentURL = url
	}

	t0 := o.now().UTC().Truncate(time.Millisecond)
	userMsg.Timestamp = t0
	aiMsg.Timestamp = t0.Add(ReplyOffset)

	storedUser, storedAI, err := o.messageRepo.AppendExchange(saveCtx, req.UserID, chatID, userMsg, aiMsg)
	if err != nil {
		// saveCtx is detached from the caller, so a deadline here is the store's.
		logErr := FromStoreError(op, chatID, err)
		if kind := KindOf(logErr); kind != KindNotFound && kind != KindValidationFailed {
			o.logger.Error("[ChatOrchestrator] logging exchange failed", "chat_id", chatID, "save_ctx_err", saveCtx.Err(), "error", err)
			logErr = NewStorageError(op, err)
		}
		return fail(logErr)
	}

	// RESPOND
	o.logger.Info("[ChatOrchestrator] exchange logged",
		"chat_id", chatID,
		"user_id", req.UserID,
		"created", created,
		"source", string(source),
	)
	return &SendMessageResult{
		CompletionText: completion,
		Chat:           resolution,
		UserMessage:    storedUser,
		AIMessage:      storedAI,
	}, nil
}

func (o *Orchestrator) resolveChat(ctx context.Context, op, userID, chatID, body string) (ChatResolution, error) {
	if chatID != "" {
		if err := o.chatRepo.TouchUpdatedAt(ctx, userID, chatID, o.now()); err != nil {
			return nil, FromStoreError(op, chatID, err)
		}
		return ExistingChat{ID: chatID}, nil
	}

	chat, err := o.chatRepo.Create(ctx, userID, domain.DeriveTitle(body))
	if err != nil {
		return nil, FromStoreError(op, "", err)
	}
	return CreatedChat{ID: chat.ID}, nil
}

func (o *Orchestrator) complete(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, o.config.GenerationTimeout)
	defer cancel()

	completion, err := o.completions.GetCompletion(genCtx, o.config.ChatModel, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(completion) == "" {
		return "", errors.New("completion engine returned an empty reply")
	}
	return completion, nil
}

// discardChat removes a chat created earlier in a request that then failed.
func (o *Orchestrator) discardChat(ctx context.Context, userID, chatID string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.SaveTimeout)
	defer cancel()

	if err := o.chatRepo.Delete(cleanupCtx, userID, chatID); err != nil {
		o.logger.Warn("[ChatOrchestrator] could not discard new chat", "chat_id", chatID, "error", err)
	}
}
