package enrich

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/search"
	"portfolio-backend/internal/shared/cache"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
)

type orgKind string

const (
	kindCompany     orgKind = "company"
	kindInstitution orgKind = "educational institution"

	searchResults = 3
)

var domainPattern = regexp.MustCompile(`(?i)^https?://(?:www\.)?([^/]+)`)

type lookupKey struct {
	kind orgKind
	name string
}

// resolveIndexed returns logos aligned with the input slices. Each distinct
// (kind, name) pair is looked up once.
func (e *Enricher) resolveIndexed(ctx context.Context, companies, institutions []string) ([]*string, []*string) {
	companyLogos := make([]*string, len(companies))
	institutionLogos := make([]*string, len(institutions))
	if e.Search == nil || e.Logos == nil {
		return companyLogos, institutionLogos
	}

	var keys []lookupKey
	seen := make(map[lookupKey]bool)
	collect := func(kind orgKind, names []string) {
		for _, n := range names {
			k := lookupKey{kind: kind, name: strings.TrimSpace(n)}
			if k.name == "" || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	collect(kindCompany, companies)
	collect(kindInstitution, institutions)

	var mu sync.Mutex
	resolved := make(map[lookupKey]*string, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for _, k := range keys {
		g.Go(func() error {
			logo := e.resolveOne(gctx, k)
			mu.Lock()
			resolved[k] = logo
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, n := range companies {
		companyLogos[i] = resolved[lookupKey{kind: kindCompany, name: strings.TrimSpace(n)}]
	}
	for i, n := range institutions {
		institutionLogos[i] = resolved[lookupKey{kind: kindInstitution, name: strings.TrimSpace(n)}]
	}
	return companyLogos, institutionLogos
}

func (e *Enricher) resolveOne(ctx context.Context, k lookupKey) *string {
	domain, err := e.domainFor(ctx, k)
	if err != nil {
		metrics.IncLogoMiss()
		telemetry.Warn("enrich.logo_failed", map[string]any{
			"kind":  string(k.kind),
			"name":  k.name,
			"stage": "domain",
			"error": err.Error(),
		})
		return nil
	}
	logo, err := e.logoFor(ctx, domain)
	if err != nil {
		metrics.IncLogoMiss()
		telemetry.Warn("enrich.logo_failed", map[string]any{
			"kind":   string(k.kind),
			"name":   k.name,
			"domain": domain,
			"stage":  "logo",
			"error":  err.Error(),
		})
		return nil
	}
	return &logo
}

func (e *Enricher) domainFor(ctx context.Context, k lookupKey) (string, error) {
	key := "domain:" + strings.ReplaceAll(string(k.kind), " ", "_") + ":" + strings.ToLower(k.name)
	if v, ok := e.cached(ctx, key); ok {
		return v, nil
	}
	items, err := e.Search.Search(ctx, k.name, searchResults)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", errors.New("no search results")
	}
	idx := e.pick(ctx, k, items)
	domain, ok := DomainFromURL(items[idx].Link)
	if !ok {
		return "", errors.New("no domain in result link " + items[idx].Link)
	}
	e.store(ctx, key, domain)
	return domain, nil
}

func (e *Enricher) logoFor(ctx context.Context, domain string) (string, error) {
	key := "logo:" + strings.ToLower(domain)
	if v, ok := e.cached(ctx, key); ok {
		return v, nil
	}
	logo, err := e.Logos.Logo(ctx, domain)
	if err != nil {
		return "", err
	}
	e.store(ctx, key, logo)
	return logo, nil
}

// pick asks the picker model for the best result. Anything but a valid
// 1-based index selects the first result.
func (e *Enricher) pick(ctx context.Context, k lookupKey, items []search.Item) int {
	if e.Picker == nil || len(items) < 2 {
		return 0
	}
	prompt, err := llm.Render(llm.PromptLogoPick, map[string]any{
		"Context": string(k.kind) + ": " + k.name,
		"Options": items,
	})
	if err != nil {
		return 0
	}
	content, err := e.Picker.Complete(ctx, llm.Request{
		System:      "Reply only with an integer.",
		Prompt:      prompt,
		Temperature: 0,
		Title:       "Logo domain picker",
	})
	if err != nil {
		return 0
	}
	return ParsePick(content, len(items))
}

// ParsePick converts a 1-based answer into a 0-based index within n options.
func ParsePick(content string, n int) int {
	num, err := strconv.Atoi(leadingDigits(strings.TrimSpace(content)))
	if err != nil || num < 1 || num > n {
		return 0
	}
	return num - 1
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// DomainFromURL returns the host of link without scheme or a leading www.
func DomainFromURL(link string) (string, bool) {
	m := domainPattern.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil || m[1] == "" {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

func (e *Enricher) cached(ctx context.Context, key string) (string, bool) {
	if e.Cache == nil {
		return "", false
	}
	v, err := e.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			telemetry.Warn("enrich.cache_error", map[string]any{"key": key, "error": err.Error()})
		}
		return "", false
	}
	return v, true
}

func (e *Enricher) store(ctx context.Context, key, value string) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Set(ctx, key, value, e.cacheTTL()); err != nil {
		telemetry.Warn("enrich.cache_error", map[string]any{"key": key, "error": err.Error()})
	}
}
