// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

type Config struct {
	ChatModel         string        // model passed to the completion engine
	MaxDocumentChars  int           // extracted PDF text beyond this is cut off
	GenerationTimeout time.Duration // per-request budget for the completion engine
	SaveTimeout       time.Duration // budget for writes that must outlive the request
}

func (c *Config) Validate() error {
	if c.ChatModel == "" {
		return fmt.Errorf("chat_model is required")
	}
	if c.MaxDocumentChars <= 0 {
		return fmt.Errorf("max_document_chars must be positive")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("generation_timeout must be positive")
	}
	if c.SaveTimeout <= 0 {
		return fmt.Errorf("save_timeout must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		ChatModel:         "gpt-4o-mini",
		MaxDocumentChars:  24000,
		GenerationTimeout: 60 * time.Second,
		SaveTimeout:       5 * time.Second,
	}
}
