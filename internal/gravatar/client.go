// Package gravatar fetches a profile picture for an email address and returns
// it inline as a data URI.
package gravatar

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio-backend/internal/provider"
)

const (
	providerName = "gravatar"
	maxImage     = 2 << 20
)

// Fetcher returns a data URI for the avatar of email, or "" when none exists.
type Fetcher interface {
	Fetch(ctx context.Context, email string) (string, error)
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient provider.Doer
}

func NewClient(baseURL string, timeout time.Duration, httpClient provider.Doer) *Client {
	if baseURL == "" {
		baseURL = "https://www.gravatar.com"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout, httpClient: httpClient}
}

// Hash is the lowercase hex md5 of the trimmed, lowercased email.
func Hash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// AvatarURL is the image URL with size 200 and a 404 default so missing
// avatars are detectable.
func (c *Client) AvatarURL(email string) string {
	return fmt.Sprintf("%s/avatar/%s?s=200&d=404", c.baseURL, Hash(email))
}

// Fetch probes with HEAD and downloads only when the avatar exists.
func (c *Client) Fetch(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.AvatarURL(email)
	status, _, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status/100 != 2 {
		return "", &provider.Error{Provider: providerName, Kind: provider.KindProvider, Status: status}
	}

	status, resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if status == http.StatusNotFound {
		return "", nil
	}
	if status/100 != 2 {
		return "", &provider.Error{Provider: providerName, Kind: provider.KindProvider, Status: status}
	}
	img, err := io.ReadAll(io.LimitReader(resp.Body, maxImage))
	if err != nil {
		return "", provider.Wrap(providerName, provider.KindTransport, err)
	}
	if len(img) == 0 {
		return "", provider.Errorf(providerName, provider.KindEmpty, "empty avatar body")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(img)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img), nil
}

func (c *Client) do(ctx context.Context, method, url string) (int, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, nil, provider.Wrap(providerName, provider.KindTransport, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, provider.Wrap(providerName, provider.KindTransport, err)
	}
	if method == http.MethodHead {
		resp.Body.Close()
	}
	return resp.StatusCode, resp, nil
}

var _ Fetcher = (*Client)(nil)
