// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

type Config struct {
	APIKey  string
	BaseURL string // empty uses the OpenAI default

	Timeout    time.Duration // per attempt
	MaxRetries int
	RetryDelay time.Duration // grows linearly with the attempt number

	Temperature float32
	TopP        float32
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	return nil
}

// Budget is the longest a single completion can take when every attempt runs
// to its timeout and every backoff is waited out.
func (c *Config) Budget() time.Duration {
	if c.MaxRetries < 1 {
		return c.Timeout
	}
	budget := time.Duration(c.MaxRetries) * c.Timeout
	for attempt := 1; attempt < c.MaxRetries; attempt++ {
		budget += time.Duration(attempt) * c.RetryDelay
	}
	return budget
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     60 * time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Second,
		Temperature: 0.3,
		TopP:        0.9,
	}
}
