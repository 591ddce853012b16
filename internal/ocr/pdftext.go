package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ledongthuc/pdf"

	"portfolio-backend/internal/provider"
)

const localProvider = "pdftext"

// PDFTextAdapter reads the embedded text layer of a PDF locally. It is used in
// development and as a fallback when no OCR key is configured; scanned PDFs
// without a text layer yield OcrFailure.
type PDFTextAdapter struct{}

func (PDFTextAdapter) ExtractText(ctx context.Context, base64PDF string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload := DecodeDataURL(base64PDF)
	if payload == "" {
		return "", provider.Wrap(localProvider, provider.KindOCRFailure, ErrEmptyInput)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", provider.Wrap(localProvider, provider.KindOCRFailure, fmt.Errorf("decode base64: %w", err))
	}
	pages, err := pdfPages(data)
	if err != nil {
		return "", provider.Wrap(localProvider, provider.KindOCRFailure, err)
	}
	text := joinPages(pages)
	if text == "" {
		return "", provider.Errorf(localProvider, provider.KindOCRFailure, "no text layer found in %d pages", len(pages))
	}
	return text, nil
}

func pdfPages(data []byte) (pages []string, err error) {
	defer func() {
		// the pdf reader panics on some malformed inputs
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

var _ Adapter = PDFTextAdapter{}
