// File: internal/services/chat/types.go
package chat

import "context"

//go:generate go run go.uber.org/mock/mockgen -destination=../../mocks/mock_capabilities.go -package=mocks github.com/iyunix/go-pdfchat/internal/services/chat CompletionProvider,Extractor,BlobStore

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// CompletionProvider turns a prompt into completion text.
type CompletionProvider interface {
	GetCompletion(ctx context.Context, model, prompt string) (string, error)
}

// Extractor turns uploaded document bytes into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// BlobStore keeps attachment bytes and hands back a URL they can be fetched from.
type BlobStore interface {
	Save(ctx context.Context, ownerID string, data []byte, contentType string) (string, error)
}
