// File: internal/repository/message/interface.go
package message

import (
	"context"
	"time"

	"github.com/iyunix/go-pdfchat/internal/domain"
)

// NewMessage is what callers supply for an append. Timestamp is never
// generated by the store.
type NewMessage struct {
	SenderID           string
	Body               string
	Timestamp          time.Time
	Source             domain.Source
	AttachmentFilename string
	AttachmentURL      string
}

type MessageRepository interface {
	Append(ctx context.Context, userID, chatID string, msg NewMessage) (*domain.Message, error)
	// AppendExchange commits a user message and its reply together or not at all.
	AppendExchange(ctx context.Context, userID, chatID string, userMsg, aiMsg NewMessage) (*domain.Message, *domain.Message, error)
	ListByChat(ctx context.Context, userID, chatID string) ([]domain.Message, error)
	CountByChat(ctx context.Context, userID, chatID string) (int64, error)
}

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
