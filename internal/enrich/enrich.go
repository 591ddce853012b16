// Package enrich adds logos, a tagline/about summary and an avatar to an
// extracted résumé. Each step writes a disjoint part of the record and any
// failure leaves that part unset.
package enrich

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"portfolio-backend/internal/brandlogo"
	"portfolio-backend/internal/gravatar"
	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/search"
	"portfolio-backend/internal/shared/cache"
	"portfolio-backend/internal/shared/telemetry"
)

const (
	DefaultConcurrency = 4
	DefaultCacheTTL    = 7 * 24 * time.Hour
)

// Enricher holds the collaborators. Any of them may be nil, which disables
// the step that needs it.
type Enricher struct {
	Search     search.Searcher
	Picker     llm.Client
	Logos      brandlogo.Resolver
	Summarizer llm.Client
	Avatars    gravatar.Fetcher
	Cache      cache.Cache
	CacheTTL   time.Duration
	// Concurrency bounds in-flight logo lookups per request.
	Concurrency int
}

// Summary is the generated profile copy.
type Summary struct {
	Tagline string `json:"tagline"`
	About   string `json:"about"`
}

// Enrich returns a copy of rec with enrichment merged in. It never fails and
// never mutates rec.
func (e *Enricher) Enrich(ctx context.Context, rec resume.Record) resume.Record {
	out := rec.Clone()
	if e == nil {
		return out
	}

	var (
		companyLogos     []*string
		institutionLogos []*string
		summary          Summary
		avatar           string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		companyLogos, institutionLogos = e.resolveIndexed(gctx, rec.Companies(), rec.Institutions())
		return nil
	})
	g.Go(func() error {
		summary = e.summarize(gctx, rec)
		return nil
	})
	if strings.TrimSpace(rec.ProfilePicture) == "" && strings.TrimSpace(rec.Email) != "" {
		g.Go(func() error {
			avatar = e.avatar(gctx, rec.Email)
			return nil
		})
	}
	_ = g.Wait()

	for i, logo := range companyLogos {
		if logo != nil {
			out.WorkExperience[i].LogoURL = *logo
		}
	}
	for i, logo := range institutionLogos {
		if logo != nil {
			out.Education[i].LogoURL = *logo
		}
	}
	out.Tagline = summary.Tagline
	out.About = summary.About
	if out.ProfilePicture == "" && avatar != "" {
		out.ProfilePicture = avatar
	}
	return out
}

// ResolveLogos looks up logos for the given names. Blank names are skipped and
// unresolved names map to nil.
func (e *Enricher) ResolveLogos(ctx context.Context, companies, institutions []string) (map[string]*string, map[string]*string) {
	companyIdx, institutionIdx := e.resolveIndexed(ctx, companies, institutions)
	return toNameMap(companies, companyIdx), toNameMap(institutions, institutionIdx)
}

func toNameMap(names []string, logos []*string) map[string]*string {
	out := make(map[string]*string, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = logos[i]
	}
	return out
}

func (e *Enricher) summarize(ctx context.Context, rec resume.Record) Summary {
	if e.Summarizer == nil {
		return Summary{}
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return Summary{}
	}
	prompt, err := llm.Render(llm.PromptSummary, map[string]string{"ResumeJSON": string(payload)})
	if err != nil {
		telemetry.Error("enrich.summary_failed", map[string]any{"error": err.Error()})
		return Summary{}
	}
	content, err := e.Summarizer.Complete(ctx, llm.Request{
		System:      "You are a helpful assistant.",
		Prompt:      prompt,
		Temperature: 0.7,
		Title:       "Summary Generator",
	})
	if err != nil {
		telemetry.Warn("enrich.summary_failed", map[string]any{"error": err.Error()})
		return Summary{}
	}
	return ParseSummary(content)
}

// ParseSummary reads model output as {tagline, about}. Code fences are
// stripped; if no object can be recovered the whole text becomes the about.
func ParseSummary(content string) Summary {
	clean := resume.StripCodeFence(content)
	obj, err := resume.ParseObject(clean)
	if err != nil {
		return Summary{About: clean}
	}
	var s Summary
	if v, ok := obj["tagline"].(string); ok {
		s.Tagline = strings.TrimSpace(v)
	}
	if v, ok := obj["about"].(string); ok {
		s.About = strings.TrimSpace(v)
	}
	return s
}

func (e *Enricher) avatar(ctx context.Context, email string) string {
	if e.Avatars == nil {
		return ""
	}
	uri, err := e.Avatars.Fetch(ctx, email)
	if err != nil {
		telemetry.Warn("enrich.avatar_failed", map[string]any{"error": err.Error()})
		return ""
	}
	return uri
}

func (e *Enricher) concurrency() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return DefaultConcurrency
}

func (e *Enricher) cacheTTL() time.Duration {
	if e.CacheTTL > 0 {
		return e.CacheTTL
	}
	return DefaultCacheTTL
}
