package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/provider"
	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/search"
	"portfolio-backend/internal/shared/cache"
)

type stubSearch struct {
	mu      sync.Mutex
	results map[string][]search.Item
	queries []string
}

func (s *stubSearch) Search(_ context.Context, query string, n int) ([]search.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	items, ok := s.results[query]
	if !ok {
		return nil, provider.Errorf("stub_search", provider.KindEmpty, "no results")
	}
	return items, nil
}

func (s *stubSearch) count(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.queries {
		if q == query {
			n++
		}
	}
	return n
}

type stubLogos map[string]string

func (s stubLogos) Logo(_ context.Context, domain string) (string, error) {
	if v, ok := s[domain]; ok {
		return v, nil
	}
	return "", provider.Errorf("stub_logo", provider.KindProvider, "unknown domain")
}

type stubAvatars struct {
	uri   string
	err   error
	calls int
}

func (s *stubAvatars) Fetch(context.Context, string) (string, error) {
	s.calls++
	return s.uri, s.err
}

func failingSearch() *stubSearch { return &stubSearch{results: map[string][]search.Item{}} }

func summaryLLM(content string, err error) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return content, err
	})
}

func sampleRecord() resume.Record {
	return resume.Record{
		Name:  "Jane Doe",
		Email: "jane@example.com",
		WorkExperience: []resume.WorkExperience{
			{Company: "Acme Corp", Title: "Engineer"},
			{Company: "Globex", Title: "Lead"},
		},
		Education: []resume.Education{{Institution: "State University", Degree: "BSc"}},
		Skills:    []string{"Go"},
	}
}

func newEnricher() (*Enricher, *stubSearch) {
	s := &stubSearch{results: map[string][]search.Item{
		"Acme Corp": {
			{Title: "Acme Wiki", Link: "https://en.wikipedia.org/wiki/Acme"},
			{Title: "Acme", Link: "https://www.acme.com/about"},
		},
		"Globex":           {{Title: "Globex", Link: "http://globex.io"}},
		"State University": {{Title: "SU", Link: "https://www.stateu.edu/"}},
	}}
	picker := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		if req.System != "Reply only with an integer." || req.Temperature != 0 {
			return "", errors.New("unexpected picker request")
		}
		return "2", nil
	})
	return &Enricher{
		Search: s,
		Picker: picker,
		Logos: stubLogos{
			"acme.com":   "https://cdn/acme.png",
			"globex.io":  "https://cdn/globex.png",
			"stateu.edu": "https://cdn/stateu.png",
		},
		Summarizer: summaryLLM("```json\n{\"tagline\":\"X\",\"about\":\"Y\"}\n```", nil),
		Avatars:    &stubAvatars{uri: "data:image/png;base64,AAAA"},
	}, s
}

func TestEnrichMergesAllRegions(t *testing.T) {
	e, _ := newEnricher()
	rec := sampleRecord()

	out := e.Enrich(context.Background(), rec)

	if out.WorkExperience[0].LogoURL != "https://cdn/acme.png" {
		t.Fatalf("expected picker-selected acme logo, got %q", out.WorkExperience[0].LogoURL)
	}
	if out.WorkExperience[1].LogoURL != "https://cdn/globex.png" {
		t.Fatalf("unexpected globex logo %q", out.WorkExperience[1].LogoURL)
	}
	if out.Education[0].LogoURL != "https://cdn/stateu.png" {
		t.Fatalf("unexpected education logo %q", out.Education[0].LogoURL)
	}
	if out.Tagline != "X" || out.About != "Y" {
		t.Fatalf("unexpected summary %q / %q", out.Tagline, out.About)
	}
	if out.ProfilePicture != "data:image/png;base64,AAAA" {
		t.Fatalf("unexpected avatar %q", out.ProfilePicture)
	}
	if rec.WorkExperience[0].LogoURL != "" || rec.Tagline != "" {
		t.Fatalf("input record was mutated")
	}
}

func TestEnrichAcmeWithoutLogoKeepsEntry(t *testing.T) {
	e, s := newEnricher()
	delete(s.results, "Acme Corp")
	rec := resume.Record{
		Name:           "John Doe",
		WorkExperience: []resume.WorkExperience{{Company: "Acme Corp", Title: "Software Engineer", StartDate: "2020", EndDate: "2023"}},
		Education:      []resume.Education{},
		Skills:         []string{},
	}

	out := e.Enrich(context.Background(), rec)

	if len(out.WorkExperience) != 1 || out.WorkExperience[0].Company != "Acme Corp" || out.WorkExperience[0].Title != "Software Engineer" {
		t.Fatalf("work experience changed: %+v", out.WorkExperience)
	}
	if out.WorkExperience[0].LogoURL != "" {
		t.Fatalf("expected no logo, got %q", out.WorkExperience[0].LogoURL)
	}
	m, err := resume.ToMap(out)
	if err != nil {
		t.Fatalf("to map: %v", err)
	}
	entry := m["work_experience"].([]any)[0].(map[string]any)
	if _, ok := entry["logo_url"]; ok {
		t.Fatalf("logo_url should be absent, got %v", entry["logo_url"])
	}
	if out.Tagline != "X" {
		t.Fatalf("summary should still merge, got %q", out.Tagline)
	}
}

func TestEnrichLogoFailureLeavesOtherRegions(t *testing.T) {
	e, _ := newEnricher()
	e.Search = failingSearch()

	out := e.Enrich(context.Background(), sampleRecord())

	for _, w := range out.WorkExperience {
		if w.LogoURL != "" {
			t.Fatalf("expected no logos, got %q", w.LogoURL)
		}
	}
	if out.Tagline != "X" || out.About != "Y" || out.ProfilePicture == "" {
		t.Fatalf("summary and avatar should be unaffected: %+v", out)
	}
}

func TestEnrichEmptySearchResultsLeaveOnlyThatLogoEmpty(t *testing.T) {
	e, s := newEnricher()
	s.results["Acme Corp"] = []search.Item{}

	out := e.Enrich(context.Background(), sampleRecord())

	if out.WorkExperience[0].LogoURL != "" {
		t.Fatalf("expected no acme logo, got %q", out.WorkExperience[0].LogoURL)
	}
	if out.WorkExperience[1].LogoURL != "https://cdn/globex.png" || out.Education[0].LogoURL != "https://cdn/stateu.png" {
		t.Fatalf("other logos should resolve: %+v / %+v", out.WorkExperience, out.Education)
	}
}

func TestEnrichSummaryFailureLeavesLogos(t *testing.T) {
	e, _ := newEnricher()
	e.Summarizer = summaryLLM("", errors.New("provider down"))
	e.Avatars = &stubAvatars{err: errors.New("timeout")}

	out := e.Enrich(context.Background(), sampleRecord())

	if out.Tagline != "" || out.About != "" || out.ProfilePicture != "" {
		t.Fatalf("expected empty summary and avatar: %+v", out)
	}
	if out.WorkExperience[0].LogoURL == "" || out.Education[0].LogoURL == "" {
		t.Fatalf("logos should be unaffected")
	}
}

func TestEnrichSkipsAvatarWhenPresent(t *testing.T) {
	e, _ := newEnricher()
	avatars := &stubAvatars{uri: "data:image/png;base64,BBBB"}
	e.Avatars = avatars
	rec := sampleRecord()
	rec.ProfilePicture = "https://example.com/me.png"

	out := e.Enrich(context.Background(), rec)

	if avatars.calls != 0 {
		t.Fatalf("avatar lookup should be skipped")
	}
	if out.ProfilePicture != "https://example.com/me.png" {
		t.Fatalf("profile picture overwritten: %q", out.ProfilePicture)
	}
}

func TestEnrichMemoizesDuplicateNames(t *testing.T) {
	e, s := newEnricher()
	rec := sampleRecord()
	rec.WorkExperience = append(rec.WorkExperience, resume.WorkExperience{Company: " Acme Corp ", Title: "Manager"})

	out := e.Enrich(context.Background(), rec)

	if got := s.count("Acme Corp"); got != 1 {
		t.Fatalf("expected one search for Acme Corp, got %d", got)
	}
	if out.WorkExperience[2].LogoURL != "https://cdn/acme.png" {
		t.Fatalf("duplicate entry missing logo: %q", out.WorkExperience[2].LogoURL)
	}
}

func TestEnrichUsesSharedCache(t *testing.T) {
	e, s := newEnricher()
	e.Cache = cache.NewMemory()

	_ = e.Enrich(context.Background(), sampleRecord())
	out := e.Enrich(context.Background(), sampleRecord())

	if got := s.count("Globex"); got != 1 {
		t.Fatalf("expected cached domain on second request, got %d searches", got)
	}
	if out.WorkExperience[1].LogoURL != "https://cdn/globex.png" {
		t.Fatalf("cached logo not applied: %q", out.WorkExperience[1].LogoURL)
	}
}

func TestResolveLogos(t *testing.T) {
	e, _ := newEnricher()
	companies, institutions := e.ResolveLogos(context.Background(), []string{"Globex", "", "Nowhere Inc"}, []string{"State University"})

	if len(companies) != 2 {
		t.Fatalf("expected blank name skipped, got %v", companies)
	}
	if companies["Globex"] == nil || *companies["Globex"] != "https://cdn/globex.png" {
		t.Fatalf("unexpected Globex logo")
	}
	if v, ok := companies["Nowhere Inc"]; !ok || v != nil {
		t.Fatalf("expected nil entry for unresolved name")
	}
	if institutions["State University"] == nil {
		t.Fatalf("expected institution logo")
	}
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Summary
	}{
		{name: "fenced", content: "```json\n{\"tagline\":\"X\",\"about\":\"Y\"}\n```", want: Summary{Tagline: "X", About: "Y"}},
		{name: "prose around object", content: "Sure! {\"tagline\":\"Builder\",\"about\":\"I build.\"} Enjoy", want: Summary{Tagline: "Builder", About: "I build."}},
		{name: "plain text", content: "I am a developer.", want: Summary{About: "I am a developer."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSummary(tt.content); got != tt.want {
				t.Fatalf("ParseSummary = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePick(t *testing.T) {
	tests := []struct {
		content string
		n       int
		want    int
	}{
		{"2", 3, 1},
		{" 3\n", 3, 2},
		{"1.", 3, 0},
		{"4", 3, 0},
		{"0", 3, 0},
		{"best is two", 3, 0},
	}
	for _, tt := range tests {
		if got := ParsePick(tt.content, tt.n); got != tt.want {
			t.Errorf("ParsePick(%q, %d) = %d, want %d", tt.content, tt.n, got, tt.want)
		}
	}
}

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://www.acme.com/about", "acme.com", true},
		{"http://Globex.io", "globex.io", true},
		{"https://careers.stateu.edu/jobs", "careers.stateu.edu", true},
		{"ftp://acme.com", "", false},
		{"acme.com", "", false},
	}
	for _, tt := range tests {
		got, ok := DomainFromURL(tt.link)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DomainFromURL(%q) = %q, %v; want %q, %v", tt.link, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEnrichNilCollaborators(t *testing.T) {
	e := &Enricher{}
	rec := sampleRecord()
	out := e.Enrich(context.Background(), rec)
	if out.Tagline != "" || out.WorkExperience[0].LogoURL != "" || !strings.EqualFold(out.Name, rec.Name) {
		t.Fatalf("expected unchanged record, got %+v", out)
	}
}
