// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var _ CompletionProvider = (*OpenAIProvider)(nil)

type OpenAIProvider struct {
	config *Config
	client *openai.Client
	logger Logger
}

func NewOpenAIProvider(config *Config, logger Logger) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// GetCompletion returns a non-streamed reply from the chat completion API.
func (p *OpenAIProvider) GetCompletion(ctx context.Context, model, prompt string) (string, error) {
	var reply string
	err := p.retryWithTimeout(ctx, "completion", func(ctx context.Context) error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: p.config.Temperature,
			TopP:        p.config.TopP,
		})
		if err != nil {
			return NewProviderError("completion", "failed to create completion", err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return &AIError{
				Type:      ErrTypeEmpty,
				Operation: "completion",
				Model:     model,
				Message:   "empty completion response",
			}
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	return reply, err
}

// HealthCheck lists the models visible to the configured key.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		return NewProviderError("health_check", "failed to list models", err)
	}
	return nil
}

// retryWithTimeout gives each attempt its own timeout and stops as soon as
// the caller's context is done.
func (p *OpenAIProvider) retryWithTimeout(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return errors.Join(ctx.Err(), lastErr)
		}
		var aiErr *AIError
		if errors.As(err, &aiErr) && aiErr.Type == ErrTypeEmpty {
			return err
		}
		if !retryable(err) {
			return err
		}

		p.logger.Warn("[OpenAIProvider] attempt failed",
			"operation", operation,
			"attempt", attempt,
			"max_retries", p.config.MaxRetries,
			"error", err,
		)
		if attempt < p.config.MaxRetries {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * p.config.RetryDelay):
			}
		}
	}
	return lastErr
}
