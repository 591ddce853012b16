package main

// Parse a local résumé PDF through the full pipeline:
//   go run ./cmd/parsecli -pdf ./resume.pdf -out ./out/resume.json

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/ocr"
	"portfolio-backend/internal/shared/cache"
	"portfolio-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	pdfPath := flag.String("pdf", "", "Path to resume PDF")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	skipEnrich := flag.Bool("no-enrich", false, "Stop after extraction")
	timeout := flag.Duration("timeout", 3*time.Minute, "Overall deadline")
	flag.Parse()

	if strings.TrimSpace(*pdfPath) == "" {
		exitErr("pdf path is required")
	}
	if !strings.EqualFold(filepath.Ext(*pdfPath), ".pdf") {
		exitErr(fmt.Sprintf("unsupported file type: %s", filepath.Ext(*pdfPath)))
	}
	data, err := os.ReadFile(*pdfPath)
	if err != nil {
		exitErr(fmt.Sprintf("read pdf: %v", err))
	}

	svc, err := bootstrap.BuildPipeline(cfg, cache.NewMemory())
	if err != nil {
		exitErr(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var payload any
	if *skipEnrich {
		parsed, err := svc.Parse(ctx, ocr.EncodePDF(data))
		if err != nil {
			exitErr(fmt.Sprintf("parse: %v", err))
		}
		payload = map[string]any{
			"parsedText":    parsed.ParsedText,
			"extractedJson": parsed.Result.Record,
			"degraded":      parsed.Result.Degraded(),
		}
	} else {
		out, err := svc.Run(ctx, ocr.EncodePDF(data))
		if err != nil {
			exitErr(fmt.Sprintf("run: %v", err))
		}
		payload = map[string]any{
			"parsedText":    out.ParsedText,
			"extractedJson": out.Extracted,
			"enhancedJson":  out.Enhanced,
			"degraded":      out.Degraded,
		}
	}

	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			exitErr(fmt.Sprintf("create output dir: %v", err))
		}
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
