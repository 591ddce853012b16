// Package ocr turns a base64-encoded PDF into plain text.
package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// Adapter extracts text from a base64-encoded PDF. Implementations never
// return empty text with a nil error.
type Adapter interface {
	ExtractText(ctx context.Context, base64PDF string) (string, error)
}

// ErrEmptyInput is returned when no document payload was supplied.
var ErrEmptyInput = errors.New("missing document payload")

const pageSeparator = "\n\n"

// DecodeDataURL strips a data:...;base64, prefix and returns the payload.
// Plain base64 input is returned trimmed.
func DecodeDataURL(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return ""
}

// EncodePDF base64-encodes raw PDF bytes.
func EncodePDF(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURL wraps a base64 payload as a PDF data URI.
func DataURL(base64PDF string) string {
	return "data:application/pdf;base64," + base64PDF
}

// joinPages concatenates page texts in order with a blank line between them.
func joinPages(pages []string) string {
	return strings.TrimSpace(strings.Join(pages, pageSeparator))
}
