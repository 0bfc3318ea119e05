// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/iyunix/go-pdfchat/internal/domain"
	chatrepo "github.com/iyunix/go-pdfchat/internal/repository/chat"
)

var ErrInvalidMessage = errors.New("invalid message")

type gormMessageRepository struct {
	db     *gorm.DB
	logger Logger
}

func NewMessageRepository(db *gorm.DB, logger Logger) MessageRepository {
	return &gormMessageRepository{db: db, logger: logger}
}

func (r *gormMessageRepository) Append(ctx context.Context, userID, chatID string, msg NewMessage) (*domain.Message, error) {
	stored, err := r.appendAll(ctx, userID, chatID, msg)
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

func (r *gormMessageRepository) AppendExchange(ctx context.Context, userID, chatID string, userMsg, aiMsg NewMessage) (*domain.Message, *domain.Message, error) {
	stored, err := r.appendAll(ctx, userID, chatID, userMsg, aiMsg)
	if err != nil {
		return nil, nil, err
	}
	return &stored[0], &stored[1], nil
}

// appendAll reserves len(msgs) sequence numbers on the chat row and inserts
// the messages in the same transaction.
func (r *gormMessageRepository) appendAll(ctx context.Context, userID, chatID string, msgs ...NewMessage) ([]domain.Message, error) {
	if userID == "" || chatID == "" {
		return nil, chatrepo.ErrChatNotFound
	}
	for _, msg := range msgs {
		if err := validateNewMessage(msg); err != nil {
			return nil, err
		}
	}

	stored := make([]domain.Message, len(msgs))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Chat{}).
			Where("id = ? AND user_id = ?", chatID, userID).
			UpdateColumn("message_count", gorm.Expr("message_count + ?", len(msgs)))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return chatrepo.ErrChatNotFound
		}

		var chat domain.Chat
		if err := tx.Select("message_count").Where("id = ?", chatID).First(&chat).Error; err != nil {
			return err
		}
		firstSeq := chat.MessageCount - int64(len(msgs)) + 1

		for i, msg := range msgs {
			stored[i] = domain.Message{
				ChatID:             chatID,
				SenderID:           msg.SenderID,
				Body:               msg.Body,
				Timestamp:          msg.Timestamp.UTC(),
				Seq:                firstSeq + int64(i),
				Source:             msg.Source,
				AttachmentFilename: msg.AttachmentFilename,
				AttachmentURL:      msg.AttachmentURL,
			}
		}
		return tx.Create(&stored).Error
	})
	if err != nil {
		if errors.Is(err, chatrepo.ErrChatNotFound) {
			return nil, chatrepo.ErrChatNotFound
		}
		r.logger.Error("[MessageRepository] append failed", "chat_id", chatID, "count", len(msgs), "error", err)
		return nil, fmt.Errorf("%w: append messages: %w", chatrepo.ErrDatabase, err)
	}

	r.logger.Debug("[MessageRepository] messages appended", "chat_id", chatID, "count", len(msgs), "last_seq", stored[len(stored)-1].Seq)
	return stored, nil
}

// ListByChat returns the chat's messages oldest first. A chat that does not
// exist under userID is reported as not found rather than empty.
func (r *gormMessageRepository) ListByChat(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	if err := r.ensureChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0)
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at ASC, seq ASC").
		Find(&messages).Error
	if err != nil {
		r.logger.Error("[MessageRepository] list failed", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("%w: list messages: %w", chatrepo.ErrDatabase, err)
	}
	if messages == nil {
		messages = make([]domain.Message, 0)
	}
	return messages, nil
}

func (r *gormMessageRepository) CountByChat(ctx context.Context, userID, chatID string) (int64, error) {
	if err := r.ensureChat(ctx, userID, chatID); err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		r.logger.Error("[MessageRepository] count failed", "chat_id", chatID, "error", err)
		return 0, fmt.Errorf("%w: count messages: %w", chatrepo.ErrDatabase, err)
	}
	return count, nil
}

func (r *gormMessageRepository) ensureChat(ctx context.Context, userID, chatID string) error {
	if userID == "" || chatID == "" {
		return chatrepo.ErrChatNotFound
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	if err != nil {
		r.logger.Error("[MessageRepository] chat lookup failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("%w: find chat: %w", chatrepo.ErrDatabase, err)
	}
	if count == 0 {
		return chatrepo.ErrChatNotFound
	}
	return nil
}

func validateNewMessage(msg NewMessage) error {
	if msg.SenderID == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	}
	if msg.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidMessage)
	}
	if !msg.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidMessage, msg.Source)
	}
	if msg.AttachmentFilename != "" && msg.Source != domain.SourcePDF {
		return fmt.Errorf("%w: attachments are only allowed on pdf messages", ErrInvalidMessage)
	}
	return nil
}
