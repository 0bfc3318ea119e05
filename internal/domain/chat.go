// File: internal/domain/chat.go
package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// TitleMaxRunes is how much of the first message becomes the chat title.
	TitleMaxRunes = 50
	// DefaultChatTitle is used for an explicit "new chat" without a title.
	DefaultChatTitle = "New chat"
)

// Chat represents a single conversation thread owned by one user.
type Chat struct {
	ID            string    `json:"id" gorm:"type:char(36);primaryKey"`
	UserID        string    `json:"-" gorm:"type:varchar(128);not null;index:idx_user_chats,priority:1"`
	Title         string    `json:"title" gorm:"type:varchar(255);not null"`
	MessageCount  int64     `json:"-" gorm:"not null;default:0"` // last Seq handed out to a message of this chat
	CreatedAt     time.Time `json:"createdAt" gorm:"not null"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt" gorm:"not null;index:idx_user_chats,priority:2"`
}

// BeforeCreate assigns a random id to chats created without one.
func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// DeriveTitle turns the message that starts a conversation into its title:
// the first 50 characters, with "..." appended when the message was longer.
func DeriveTitle(message string) string {
	if utf8.RuneCountInString(message) <= TitleMaxRunes {
		return message
	}
	runes := []rune(message)
	return string(runes[:TitleMaxRunes]) + "..."
}
