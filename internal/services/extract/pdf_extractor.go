// File: internal/services/extract/pdf_extractor.go
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const PDFContentType = "application/pdf"

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNotPDF        = errors.New("document is not a PDF")
	ErrUnreadable    = errors.New("document could not be read")
)

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// PDFExtractor pulls the plain text out of every page of a PDF.
type PDFExtractor struct {
	logger Logger
}

func NewPDFExtractor(logger Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger}
}

// IsPDF sniffs data by content rather than by filename or header.
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is(PDFContentType)
}

func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if !IsPDF(data) {
		return "", fmt.Errorf("%w: detected %s", ErrNotPDF, mimetype.Detect(data).String())
	}

	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("[PDFExtractor] reader panicked", "panic", r)
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %w", ErrUnreadable, i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	e.logger.Debug("[PDFExtractor] text extracted", "pages", pages, "bytes", len(data), "chars", b.Len())
	return strings.TrimSpace(b.String()), nil
}
