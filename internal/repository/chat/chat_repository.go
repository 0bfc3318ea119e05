package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/iyunix/go-pdfchat/internal/domain"
)

const maxTitleRunes = 200

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrInvalidTitle = errors.New("invalid chat title")
	ErrDatabase     = errors.New("database error")
)

type gormChatRepository struct {
	db     *gorm.DB
	logger Logger
	now    func() time.Time
}

func NewChatRepository(db *gorm.DB, logger Logger) ChatRepository {
	return &gormChatRepository{db: db, logger: logger, now: time.Now}
}

// Create inserts a chat whose createdAt and lastUpdatedAt are both now.
func (r *gormChatRepository) Create(ctx context.Context, userID, title string) (*domain.Chat, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	if err := validateChatTitle(title); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	chat := &domain.Chat{
		UserID:        userID,
		Title:         title,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		r.logger.Error("[ChatRepository] create failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: create chat: %w", ErrDatabase, err)
	}

	r.logger.Debug("[ChatRepository] chat created", "chat_id", chat.ID, "user_id", userID)
	return chat, nil
}

// FindByID only returns chats owned by userID; anything else is not found.
func (r *gormChatRepository) FindByID(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	if userID == "" || chatID == "" {
		return nil, ErrChatNotFound
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		r.logger.Error("[ChatRepository] find failed", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("%w: find chat: %w", ErrDatabase, err)
	}
	return &chat, nil
}

// ListByUser lists the user's chats, most recently active first.
func (r *gormChatRepository) ListByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	chats := make([]domain.Chat, 0)
	if userID == "" {
		return chats, nil
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated_at DESC, created_at DESC, id DESC").
		Find(&chats).Error
	if err != nil {
		r.logger.Error("[ChatRepository] list failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: list chats: %w", ErrDatabase, err)
	}
	if chats == nil {
		chats = make([]domain.Chat, 0)
	}
	return chats, nil
}

func (r *gormChatRepository) Update(ctx context.Context, userID, chatID string, update ChatUpdate) error {
	values := make(map[string]interface{}, 2)
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if err := validateChatTitle(title); err != nil {
			return err
		}
		values["title"] = title
	}
	if update.LastUpdatedAt != nil {
		values["last_updated_at"] = update.LastUpdatedAt.UTC()
	}
	if len(values) == 0 {
		_, err := r.FindByID(ctx, userID, chatID)
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Updates(values)
	if result.Error != nil {
		r.logger.Error("[ChatRepository] update failed", "chat_id", chatID, "error", result.Error)
		return fmt.Errorf("%w: update chat: %w", ErrDatabase, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *gormChatRepository) TouchUpdatedAt(ctx context.Context, userID, chatID string, at time.Time) error {
	return r.Update(ctx, userID, chatID, ChatUpdate{LastUpdatedAt: &at})
}

// Delete removes the chat and every message under it in one transaction.
func (r *gormChatRepository) Delete(ctx context.Context, userID, chatID string) error {
	if userID == "" || chatID == "" {
		return ErrChatNotFound
	}

	var removedMessages int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", chatID, userID).Delete(&domain.Chat{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}

		result = tx.Where("chat_id = ?", chatID).Delete(&domain.Message{})
		removedMessages = result.RowsAffected
		return result.Error
	})
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return ErrChatNotFound
		}
		r.logger.Error("[ChatRepository] delete failed", "chat_id", chatID, "user_id", userID, "error", err)
		return fmt.Errorf("%w: delete chat: %w", ErrDatabase, err)
	}

	r.logger.Info("[ChatRepository] chat deleted", "chat_id", chatID, "user_id", userID, "messages", removedMessages)
	return nil
}

func validateChatTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTitle)
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return fmt.Errorf("%w: title must be %d characters or less", ErrInvalidTitle, maxTitleRunes)
	}
	return nil
}
