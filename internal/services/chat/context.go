// File: internal/services/chat/context.go
package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ContextHelper prepares extracted document text for the completion prompt.
type ContextHelper struct {
	config *Config
	logger Logger
}

func NewContextHelper(config *Config, logger Logger) *ContextHelper {
	return &ContextHelper{
		config: config,
		logger: logger,
	}
}

// TruncateText cuts input to at most maxLen runes.
func (ch *ContextHelper) TruncateText(input string, maxLen int) string {
	if input == "" || maxLen <= 0 {
		return ""
	}

	if utf8.RuneCountInString(input) <= maxLen {
		return input
	}

	var b strings.Builder
	count := 0
	for _, r := range input {
		if count >= maxLen {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

// CleanWhitespace collapses runs of whitespace inside each line and drops
// blank lines. PDF text extraction tends to produce lots of both.
func (ch *ContextHelper) CleanWhitespace(input string) string {
	lines := strings.Split(input, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			kept = append(kept, strings.Join(fields, " "))
		}
	}
	return strings.Join(kept, "\n")
}

// BuildDocumentPrompt places the document text ahead of the user's request.
func (ch *ContextHelper) BuildDocumentPrompt(filename, documentText, question string) string {
	text := ch.CleanWhitespace(documentText)
	if limit := ch.config.MaxDocumentChars; utf8.RuneCountInString(text) > limit {
		ch.logger.Info("truncating document text for prompt",
			"filename", filename,
			"original_runes", utf8.RuneCountInString(text),
			"max_runes", limit,
		)
		text = ch.TruncateText(text, limit) + "\n[document truncated]"
	}
	if text == "" {
		text = "(no extractable text)"
	}

	return fmt.Sprintf(`# Document: %s
%s

# Request
%s

# Instructions
- Answer using the document above; say so when it does not contain the answer.
- Return your answer in valid Markdown.
`, filename, text, question)
}
