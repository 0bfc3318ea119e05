package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/iyunix/go-pdfchat/internal/domain"
	"github.com/iyunix/go-pdfchat/internal/render"
	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
)

const maxBodyChars = 20000

var validate = validator.New()

type sendMessageRequest struct {
	Body   string `json:"body" validate:"max=20000"`
	ChatID string `json:"chatId"`
}

type createChatRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type renameChatRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type sendMessageResponse struct {
	CompletionText string `json:"completionText"`
	ChatID         string `json:"chatId"`
	Kind           string `json:"kind"`
	NewChatID      string `json:"newChatId,omitempty"`
}

type chatResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

type messageResponse struct {
	ID                 string    `json:"id"`
	ChatID             string    `json:"chatId"`
	SenderID           string    `json:"senderId"`
	FromAI             bool      `json:"fromAi"`
	Body               string    `json:"body"`
	HTML               string    `json:"html,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	Source             string    `json:"source"`
	AttachmentFilename string    `json:"attachmentFilename,omitempty"`
	AttachmentURL      string    `json:"attachmentUrl,omitempty"`
}

type logRequest struct {
	Level   string      `json:"level" validate:"required,oneof=debug info warn error"`
	Message string      `json:"message" validate:"required,max=2000"`
	Context interface{} `json:"context,omitempty"`
}

// validateRequest runs the struct tags on v and reports the first failing
// field as a ValidationFailed error.
func validateRequest(op string, v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return chatservice.NewValidationError(op, describeValidation(err))
	}
	return nil
}

// validateChatID rejects ids that cannot name a chat before any store access.
// Such an id is reported like any other chat that does not exist.
func validateChatID(op, chatID string) error {
	if err := validate.Var(chatID, "required,uuid4"); err != nil {
		return chatservice.NewNotFoundError(op, chatID)
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSendMessageResponse(result *chatservice.SendMessageResult) sendMessageResponse {
	resp := sendMessageResponse{
		CompletionText: result.CompletionText,
		ChatID:         result.Chat.ChatID(),
	}
	switch c := result.Chat.(type) {
	case chatservice.CreatedChat:
		resp.Kind = "created"
		resp.NewChatID = c.ID
	case chatservice.ExistingChat:
		resp.Kind = "existing"
	}
	return resp
}

func toChatResponses(chats []domain.Chat) []chatResponse {
	return lo.Map(chats, func(item domain.Chat, _ int) chatResponse {
		return toChatResponse(item)
	})
}

func toChatResponse(c domain.Chat) chatResponse {
	return chatResponse{
		ID:            c.ID,
		Title:         c.Title,
		CreatedAt:     c.CreatedAt,
		LastUpdatedAt: c.LastUpdatedAt,
	}
}

// toMessageResponses maps stored messages to the wire shape. When md is set,
// every body is also rendered to HTML.
func toMessageResponses(messages []domain.Message, md *render.Markdown) ([]messageResponse, error) {
	var renderErr error
	out := lo.Map(messages, func(item domain.Message, _ int) messageResponse {
		resp := messageResponse{
			ID:                 item.ID,
			ChatID:             item.ChatID,
			SenderID:           item.SenderID,
			FromAI:             item.FromAI(),
			Body:               item.Body,
			Timestamp:          item.Timestamp,
			Source:             string(item.Source),
			AttachmentFilename: item.AttachmentFilename,
			AttachmentURL:      item.AttachmentURL,
		}
		if md != nil && renderErr == nil {
			resp.HTML, renderErr = md.ToHTML(item.Body)
		}
		return resp
	})
	if renderErr != nil {
		return nil, renderErr
	}
	return out, nil
}
