// File: internal/domain/message.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SenderAI is the sender id stored on messages written by the model.
const SenderAI = "ai"

// Source tags whether a message belongs to a plain chat exchange or to one
// that carried a PDF attachment.
type Source string

const (
	SourceChat Source = "chat"
	SourcePDF  Source = "pdf"
)

// Valid reports whether s is one of the known source tags.
func (s Source) Valid() bool {
	return s == SourceChat || s == SourcePDF
}

// Message represents a single message within a chat. Messages are append-only.
type Message struct {
	ID                 string    `json:"id" gorm:"type:char(36);primaryKey"`
	ChatID             string    `json:"chatId" gorm:"type:char(36);not null;index:idx_chat_messages,priority:1"`
	SenderID           string    `json:"senderId" gorm:"type:varchar(128);not null"`
	Body               string    `json:"body" gorm:"type:text;not null"`
	Timestamp          time.Time `json:"timestamp" gorm:"column:sent_at;not null;index:idx_chat_messages,priority:2"`
	Seq                int64     `json:"seq" gorm:"not null"`
	Source             Source    `json:"source" gorm:"type:varchar(8);not null"`
	AttachmentFilename string    `json:"attachmentFilename,omitempty" gorm:"type:varchar(255)"`
	AttachmentURL      string    `json:"attachmentUrl,omitempty" gorm:"type:varchar(512)"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// FromAI reports whether the message was written by the model.
func (m Message) FromAI() bool {
	return m.SenderID == SenderAI
}
