// Package brandlogo resolves a logo image URL for a domain via Brandfetch.
package brandlogo

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio-backend/internal/provider"
)

const providerName = "brandfetch"

// Resolver returns a logo URL for a registrable domain.
type Resolver interface {
	Logo(ctx context.Context, domain string) (string, error)
}

type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient provider.Doer
}

func NewClient(apiKey, baseURL string, timeout time.Duration, httpClient provider.Doer) *Client {
	if baseURL == "" {
		baseURL = "https://api.brandfetch.com/v2"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
	}
}

type brandResponse struct {
	Logos []Logo `json:"logos"`
}

// Logo is one brand asset group.
type Logo struct {
	Type    string   `json:"type"`
	Formats []Format `json:"formats"`
}

type Format struct {
	Format string `json:"format"`
	Src    string `json:"src"`
}

// Logo fetches the brand and picks an asset with PickLogo.
func (c *Client) Logo(ctx context.Context, domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", provider.Errorf(providerName, provider.KindMalformed, "empty domain")
	}
	if c.apiKey == "" {
		return "", provider.Errorf(providerName, provider.KindProvider, "BRANDFETCH_API_KEY not configured")
	}
	var parsed brandResponse
	err := provider.SendJSON(ctx, c.httpClient, provider.Request{
		Provider: providerName,
		Method:   http.MethodGet,
		URL:      c.baseURL + "/brands/" + url.PathEscape(domain),
		Headers:  map[string]string{"Authorization": "Bearer " + c.apiKey},
		Timeout:  c.timeout,
	}, &parsed)
	if err != nil {
		return "", err
	}
	src, ok := PickLogo(parsed.Logos)
	if !ok {
		return "", provider.Errorf(providerName, provider.KindEmpty, "no usable logo for %s", domain)
	}
	return src, nil
}

// PickLogo selects the first icon, logo or symbol asset, preferring its PNG
// format and otherwise its first format.
func PickLogo(logos []Logo) (string, bool) {
	for _, l := range logos {
		switch strings.ToLower(l.Type) {
		case "icon", "logo", "symbol":
		default:
			continue
		}
		if len(l.Formats) == 0 {
			continue
		}
		for _, f := range l.Formats {
			if strings.EqualFold(f.Format, "png") && f.Src != "" {
				return f.Src, true
			}
		}
		if l.Formats[0].Src != "" {
			return l.Formats[0].Src, true
		}
	}
	return "", false
}

var _ Resolver = (*Client)(nil)
