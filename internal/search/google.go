// Package search queries Google Programmable Search for organization homepages.
package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portfolio-backend/internal/provider"
)

const providerName = "google_cse"

// Item is one search hit.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher returns the top results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]Item, error)
}

// GoogleClient calls the Custom Search JSON API.
type GoogleClient struct {
	apiKey     string
	engineID   string
	baseURL    string
	timeout    time.Duration
	httpClient provider.Doer
}

func NewGoogleClient(apiKey, engineID, baseURL string, timeout time.Duration, httpClient provider.Doer) *GoogleClient {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GoogleClient{
		apiKey:     apiKey,
		engineID:   engineID,
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

type searchResponse struct {
	Items []Item `json:"items"`
}

// Search returns up to n items. No hits is EmptyResult.
func (c *GoogleClient) Search(ctx context.Context, query string, n int) ([]Item, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, provider.Errorf(providerName, provider.KindProvider, "search credentials not configured")
	}
	if n <= 0 {
		n = 3
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(n))
	q.Set("fields", "items(title,link,snippet)")

	var parsed searchResponse
	err := provider.SendJSON(ctx, c.httpClient, provider.Request{
		Provider: providerName,
		Method:   http.MethodGet,
		URL:      c.baseURL + "?" + q.Encode(),
		Timeout:  c.timeout,
	}, &parsed)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if strings.TrimSpace(it.Link) == "" {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, provider.Errorf(providerName, provider.KindEmpty, "no results for %q", query)
	}
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

var _ Searcher = (*GoogleClient)(nil)
