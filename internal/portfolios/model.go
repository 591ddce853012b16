package portfolios

import (
	"strings"
	"time"
	"unicode"
)

const (
	DefaultTitle       = "My Portfolio"
	DefaultDescription = "Personal portfolio"
)

type Portfolio struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Subdomain    string    `json:"subdomain"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	IsPublished  bool      `json:"is_published"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResumeData is one saved revision of the résumé behind a portfolio. The
// newest row is the one that renders.
type ResumeData struct {
	ID                string         `json:"id"`
	PortfolioID       string         `json:"portfolio_id"`
	OriginalResumeURL string         `json:"original_resume_url,omitempty"`
	ParsedText        string         `json:"parsed_text,omitempty"`
	ExtractedJSON     map[string]any `json:"extracted_json,omitempty"`
	EnhancedJSON      map[string]any `json:"enhanced_json,omitempty"`
	FinalJSON         map[string]any `json:"final_json"`
	TemplateID        int            `json:"template_id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Detail is a portfolio with its latest résumé revision.
type Detail struct {
	Portfolio
	Resume *ResumeData `json:"resume_data"`
}

// Availability answers a subdomain lookup.
type Availability struct {
	Subdomain string `json:"subdomain"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// SuggestSubdomain derives a candidate subdomain from a display name.
func SuggestSubdomain(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r > unicode.MaxASCII {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
