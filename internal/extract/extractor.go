// Package extract obtains raw text from clinical documents, falling back to
// optical recognition per page when a page carries no embedded text layer.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/ocr"
)

// ErrUnreadable indicates the source file could not be opened or parsed at
// all. A document whose every page is blank is not unreadable; it yields an
// ExtractedText with empty FullText.
var ErrUnreadable = errors.New("document unreadable")

// pageSource reads the per-page embedded text of a document. Pages with no
// text layer yield empty strings.
type pageSource interface {
	pageTexts(content []byte) ([]string, error)
}

// Extractor extracts page text, substituting optical recognition output for
// pages whose text layer is empty.
type Extractor struct {
	recognizer ocr.Recognizer
	source     pageSource
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for debug output (per-page extraction method, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor that reads PDF text layers and uses
// recognizer for pages without one. recognizer may be nil; blank pages then
// stay blank.
func NewExtractor(recognizer ocr.Recognizer, opts ...Option) *Extractor {
	e := &Extractor{
		recognizer: recognizer,
		source:     pdfSource{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its full text with per-page
// records. Returns ErrUnreadable (wrapped) only when the file cannot be
// opened or parsed; an all-blank document succeeds with empty FullText.
func (e *Extractor) Extract(ctx context.Context, path string) (*models.ExtractedText, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	texts, err := e.source.pageTexts(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	pages := make([]models.PageRecord, 0, len(texts))
	hasNative := false
	hasRecognized := false
	var full strings.Builder
	for i, text := range texts {
		pageNum := i + 1
		record := models.PageRecord{Page: pageNum, Method: models.MethodText}
		if strings.TrimSpace(text) != "" {
			record.Text = text
			hasNative = true
		} else {
			// No text layer on this page: substitute recognition output so
			// no page's recognized text is ever dropped.
			record.Method = models.MethodOCR
			record.Text = e.recognize(ctx, content, pageNum)
			if strings.TrimSpace(record.Text) != "" {
				hasRecognized = true
			}
		}
		pages = append(pages, record)
		if full.Len() > 0 {
			full.WriteString("\n")
		}
		full.WriteString(fmt.Sprintf("--- page %d ---\n", pageNum))
		full.WriteString(record.Text)
	}

	fullText := full.String()
	if !hasNative && !hasRecognized {
		fullText = ""
	}

	return &models.ExtractedText{
		FullText: fullText,
		Pages:    pages,
		Metadata: models.ExtractionMetadata{
			PageCount:     len(pages),
			HasNativeText: hasNative,
			Method:        extractionMethod(hasNative, hasRecognized),
		},
	}, nil
}

// recognize runs OCR for one page. Recognition failures surface as an empty
// page; the orchestrator decides whether a fully empty document fails the run.
func (e *Extractor) recognize(ctx context.Context, content []byte, page int) string {
	if e.recognizer == nil {
		return ""
	}
	text, err := e.recognizer.RecognizePage(ctx, content, page)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("page recognition failed", zap.Int("page", page), zap.Error(err))
		}
		return ""
	}
	if e.logger != nil {
		e.logger.Debug("page recognized", zap.Int("page", page), zap.Int("chars", len(text)))
	}
	return text
}

func extractionMethod(hasNative, hasRecognized bool) string {
	switch {
	case hasNative && hasRecognized:
		return "mixed"
	case hasRecognized:
		return models.MethodOCR
	default:
		return models.MethodText
	}
}
