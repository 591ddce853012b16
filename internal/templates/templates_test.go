package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/resume"
)

func TestCatalogListsFourTemplates(t *testing.T) {
	list, err := Catalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 templates, got %d", len(list))
	}
	if !list[0].Available || !list[1].Available || list[2].Available || list[3].Available {
		t.Fatalf("unexpected availability %+v", list)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	tests := []struct {
		id   int
		want int
	}{
		{id: 1, want: 1},
		{id: 2, want: 2},
		{id: 3, want: 1},
		{id: 99, want: 1},
		{id: 0, want: 1},
	}
	for _, tt := range tests {
		if got := Resolve(tt.id).ID; got != tt.want {
			t.Fatalf("Resolve(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"Jane Doe":             "JD",
		"jane":                 "J",
		"  ada  king lovelace": "AK",
		"":                     "?",
		"(Bob) Smith":          "BS",
	}
	for in, want := range tests {
		if got := Initials(in); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", in, got, want)
		}
	}
}

func sampleRecord() resume.Record {
	return resume.Record{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		GitHub:  "https://github.com/jane",
		Tagline: "Builder of things",
		About:   "First paragraph.\nSecond <paragraph>.",
		Skills:  []string{"Go", "SQL"},
		WorkExperience: []resume.WorkExperience{{
			Company: "Acme", Title: "Engineer", StartDate: "2020", LogoURL: "https://logo.example/acme.png",
		}},
		Education: []resume.Education{{Institution: "State University", Degree: "BSc", Dates: "2014 – 2018"}},
		Projects:  []resume.Project{{Name: "Widget", Links: []string{"https://widget.dev"}}},
		Languages: []string{"English", "Spanish"},
	}
}

func TestRenderClassic(t *testing.T) {
	out, err := RenderString(1, sampleRecord())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"template-classic",
		"<title>Jane Doe</title>",
		"2020 – Present",
		"https://logo.example/acme.png",
		"Second &lt;paragraph&gt;.",
		"English, Spanish",
		`class="avatar avatar-initials"`,
		">JD<",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
}

func TestRenderModernUsesProfilePicture(t *testing.T) {
	rec := sampleRecord()
	rec.ProfilePicture = "https://img.example/jane.jpg"
	out, err := RenderString(2, rec)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "template-modern") || !strings.Contains(out, "https://img.example/jane.jpg") {
		t.Fatalf("expected modern layout with picture")
	}
	if strings.Contains(out, "avatar-initials\"") && strings.Contains(out, ">JD<") {
		t.Fatalf("initials should not render when a picture exists")
	}
}

func TestRenderUnavailableTemplateUsesClassic(t *testing.T) {
	out, err := RenderString(4, sampleRecord())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "template-classic") || !strings.Contains(out, "portfolio-template-1") {
		t.Fatalf("expected classic fallback")
	}
}

func TestRenderPlaceholderRecord(t *testing.T) {
	out, err := RenderString(1, resume.Placeholder("extraction failed"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, resume.PlaceholderName) {
		t.Fatalf("expected placeholder name")
	}
	if strings.Contains(out, "<h2>Experience</h2>") {
		t.Fatalf("empty sections should be omitted")
	}
}

func TestDisabledExporter(t *testing.T) {
	_, err := DisabledExporter{}.Export(context.Background(), 1, sampleRecord())
	if !errors.Is(err, ErrPDFDisabled) {
		t.Fatalf("expected ErrPDFDisabled, got %v", err)
	}
}

func TestCatalogHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/templates", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Templates []map[string]any `json:"templates"`
		Default   int              `json:"default"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Templates) != 4 || body.Default != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
	if _, ok := body.Templates[0]["layout"]; ok {
		t.Fatalf("layout should not be exposed")
	}
}
