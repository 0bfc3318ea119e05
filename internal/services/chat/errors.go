// File: internal/services/chat/errors.go
package chat

import (
	"context"
	"errors"
	"fmt"

	chatrepo "github.com/iyunix/go-pdfchat/internal/repository/chat"
	msgrepo "github.com/iyunix/go-pdfchat/internal/repository/message"
)

// Kind tells a caller what went wrong and, by extension, whether to retry,
// fix the input or re-authenticate.
type Kind string

const (
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindNotFound           Kind = "NOT_FOUND"
	KindValidationFailed   Kind = "VALIDATION_FAILED"
	KindGenerationFailed   Kind = "GENERATION_FAILED"
	KindExtractionFailed   Kind = "EXTRACTION_FAILED"
	KindStorageUnavailable Kind = "STORAGE_UNAVAILABLE"
	KindCanceled           Kind = "CANCELED"
)

type ChatError struct {
	Kind      Kind
	Operation string
	Message   string
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chat %s error in %s: %s (caused by: %v)", e.Kind, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("chat %s error in %s: %s", e.Kind, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// Is matches any ChatError of the same kind, so callers can write
// errors.Is(err, chat.ErrNotFound).
func (e *ChatError) Is(target error) bool {
	var t *ChatError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized       = &ChatError{Kind: KindUnauthorized}
	ErrNotFound           = &ChatError{Kind: KindNotFound}
	ErrValidationFailed   = &ChatError{Kind: KindValidationFailed}
	ErrGenerationFailed   = &ChatError{Kind: KindGenerationFailed}
	ErrExtractionFailed   = &ChatError{Kind: KindExtractionFailed}
	ErrStorageUnavailable = &ChatError{Kind: KindStorageUnavailable}
	ErrCanceled           = &ChatError{Kind: KindCanceled}
)

func NewUnauthorizedError(operation string) *ChatError {
	return &ChatError{Kind: KindUnauthorized, Operation: operation, Message: "missing or invalid credentials"}
}

func NewNotFoundError(operation, chatID string) *ChatError {
	return &ChatError{Kind: KindNotFound, Operation: operation, Message: fmt.Sprintf("chat %s not found", chatID)}
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Kind: KindValidationFailed, Operation: operation, Message: msg}
}

func NewGenerationError(operation string, cause error) *ChatError {
	return &ChatError{Kind: KindGenerationFailed, Operation: operation, Message: "completion engine failed", Cause: cause}
}

func NewExtractionError(operation string, cause error) *ChatError {
	return &ChatError{Kind: KindExtractionFailed, Operation: operation, Message: "could not extract text from attachment", Cause: cause}
}

func NewStorageError(operation string, cause error) *ChatError {
	return &ChatError{Kind: KindStorageUnavailable, Operation: operation, Message: "storage unavailable", Cause: cause}
}

func NewCanceledError(operation string, cause error) *ChatError {
	return &ChatError{Kind: KindCanceled, Operation: operation, Message: "request canceled", Cause: cause}
}

// FromStoreError translates repository errors into the chat taxonomy.
func FromStoreError(operation, chatID string, err error) error {
	if err == nil {
		return nil
	}

	var chatErr *ChatError
	switch {
	case errors.As(err, &chatErr):
		return chatErr
	case errors.Is(err, chatrepo.ErrChatNotFound):
		return NewNotFoundError(operation, chatID)
	case errors.Is(err, chatrepo.ErrInvalidTitle), errors.Is(err, msgrepo.ErrInvalidMessage):
		return &ChatError{Kind: KindValidationFailed, Operation: operation, Message: err.Error(), Cause: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewCanceledError(operation, err)
	default:
		return NewStorageError(operation, err)
	}
}

// KindOf returns the kind carried by err, or "" when err is not a ChatError.
func KindOf(err error) Kind {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}
	return ""
}
