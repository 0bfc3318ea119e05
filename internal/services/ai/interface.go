// File: internal/services/ai/interface.go
package ai

import "context"

// CompletionProvider handles chat completions
type CompletionProvider interface {
	GetCompletion(ctx context.Context, model, prompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Logger defines the logging interface used by providers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
