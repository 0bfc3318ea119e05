package chat

import (
	"context"
	"time"

	"github.com/iyunix/go-pdfchat/internal/domain"
)

// ChatUpdate is a partial update; nil fields are left untouched.
type ChatUpdate struct {
	Title         *string
	LastUpdatedAt *time.Time
}

// ChatRepository handles the lifecycle of one user's chat threads.
type ChatRepository interface {
	Create(ctx context.Context, userID, title string) (*domain.Chat, error)
	FindByID(ctx context.Context, userID, chatID string) (*domain.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Chat, error)
	Update(ctx context.Context, userID, chatID string, update ChatUpdate) error
	TouchUpdatedAt(ctx context.Context, userID, chatID string, at time.Time) error
	Delete(ctx context.Context, userID, chatID string) error
}

// Logger defines the logging interface used by the repository.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
