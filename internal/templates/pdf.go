package templates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/shared/telemetry"
)

// ErrPDFDisabled is returned by the disabled exporter.
var ErrPDFDisabled = errors.New("pdf export is disabled")

// PDFExporter turns a rendered portfolio into a printable document.
type PDFExporter interface {
	Export(ctx context.Context, templateID int, rec resume.Record) ([]byte, error)
}

// DisabledExporter always reports ErrPDFDisabled.
type DisabledExporter struct{}

func (DisabledExporter) Export(context.Context, int, resume.Record) ([]byte, error) {
	return nil, ErrPDFDisabled
}

// ChromedpExporter prints pages with headless Chrome. ChromePath may be empty
// to use the binary found on PATH.
type ChromedpExporter struct {
	ChromePath string
	Timeout    time.Duration
}

func NewChromedpExporter() *ChromedpExporter {
	return &ChromedpExporter{ChromePath: os.Getenv("CHROME_PATH"), Timeout: 60 * time.Second}
}

func (e *ChromedpExporter) Export(ctx context.Context, templateID int, rec resume.Record) ([]byte, error) {
	html, err := RenderString(templateID, rec)
	if err != nil {
		return nil, fmt.Errorf("render portfolio: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(e.ChromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(cctx, timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "portfolio-pdf-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)
	htmlPath := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return nil, err
	}

	start := time.Now()
	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 in inches.
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	telemetry.Info("portfolio.pdf.exported", map[string]any{
		"template_id": templateID,
		"bytes":       len(pdf),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return pdf, nil
}

var (
	_ PDFExporter = DisabledExporter{}
	_ PDFExporter = (*ChromedpExporter)(nil)
)
