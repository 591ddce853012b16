package main

// Render a sample portfolio with every available template:
//   go run ./cmd/renderdemo -out ./out -pdf

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/templates"
)

func main() {
	outDir := flag.String("out", "./out", "output directory")
	withPDF := flag.Bool("pdf", false, "also print each page to PDF with headless Chrome")
	flag.Parse()

	rec := sampleRecord()
	list, err := templates.Catalog()
	if err != nil {
		fail("load catalog", err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fail("create output dir", err)
	}
	if err := writeRecord(filepath.Join(*outDir, "sample_record.json"), rec); err != nil {
		fail("write record", err)
	}

	exporter := templates.NewChromedpExporter()
	for _, tpl := range list {
		if !tpl.Available {
			continue
		}
		html, err := templates.RenderString(tpl.ID, rec)
		if err != nil {
			fail("render "+tpl.Name, err)
		}
		if strings.Contains(html, "{{") || strings.Contains(html, "}}") {
			fail("render "+tpl.Name, fmt.Errorf("unresolved template tokens"))
		}
		htmlPath := filepath.Join(*outDir, fmt.Sprintf("portfolio_%d.html", tpl.ID))
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			fail("write html", err)
		}
		fmt.Printf("OK: wrote %s\n", htmlPath)

		if !*withPDF {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		pdf, err := exporter.Export(ctx, tpl.ID, rec)
		cancel()
		if err != nil {
			fail("export "+tpl.Name, err)
		}
		pdfPath := filepath.Join(*outDir, fmt.Sprintf("portfolio_%d.pdf", tpl.ID))
		if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
			fail("write pdf", err)
		}
		fmt.Printf("OK: wrote %s (%d bytes)\n", pdfPath, len(pdf))
	}
}

func writeRecord(path string, rec resume.Record) error {
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func sampleRecord() resume.Record {
	return resume.Record{
		Name:     "Jordan Lee",
		Email:    "jordan.lee@example.com",
		Location: "Austin, TX",
		LinkedIn: "https://www.linkedin.com/in/jordanlee",
		GitHub:   "https://github.com/jordanlee",
		Tagline:  "Backend engineer building resilient APIs",
		About:    "Backend engineer with 8+ years of experience building resilient APIs and data services.\n\nLed platform modernization spanning cloud migration and observability adoption.",
		Skills:   []string{"Go", "PostgreSQL", "AWS", "Kubernetes"},
		WorkExperience: []resume.WorkExperience{
			{
				Company:     "Acme Logistics",
				Title:       "Senior Backend Engineer",
				StartDate:   "2021-04",
				Location:    "Austin, TX",
				Description: "Designed a routing service that reduced shipment latency by 18%.",
				Tags:        []string{"Go", "gRPC"},
			},
			{
				Company:     "Blue Harbor Systems",
				Title:       "Backend Engineer",
				StartDate:   "2018-01",
				EndDate:     "2021-03",
				Description: "Built event-driven ingestion pipelines for compliance data feeds.",
			},
		},
		Education: []resume.Education{
			{Institution: "University of Texas", Degree: "B.S. Computer Science", StartDate: "2013", EndDate: "2017"},
		},
		Projects: []resume.Project{
			{Name: "tracewise", Description: "Sampling proxy for OpenTelemetry traces.", Links: []string{"https://github.com/jordanlee/tracewise"}},
		},
	}
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", step, err)
	os.Exit(1)
}
