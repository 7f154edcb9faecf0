package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TruncationMarker is appended to text cut down to a size limit
const TruncationMarker = "\n[... Content truncated due to size limits ...]"

// TextProcessor prepares message text for external services
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes on a rune boundary; maxSize <= 0 keeps everything
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + TruncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		sb.WriteRune(r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", sb.Len()))

	return sb.String()
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}

// VerificationSpan builds the text sent to a verification oracle: the extracted references
// first so they survive truncation, then the subject and body
func (tp *TextProcessor) VerificationSpan(refs []string, subject, body string, maxSize int) string {
	var sb strings.Builder
	if len(refs) > 0 {
		sb.WriteString("References: ")
		sb.WriteString(strings.Join(refs, "; "))
		sb.WriteString("\n")
	}
	if subject != "" {
		sb.WriteString("Subject: ")
		sb.WriteString(subject)
		sb.WriteString("\n")
	}
	sb.WriteString(body)
	return tp.ProcessText(sb.String(), maxSize)
}
