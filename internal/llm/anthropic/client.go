// Package anthropic adapts the Anthropic Messages API to llm.Client.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/provider"
	"portfolio-backend/internal/shared/telemetry"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 4096
)

// Client implements llm.Client with Claude models.
type Client struct {
	client  sdk.Client
	model   string
	timeout time.Duration
	limiter *provider.Limiter
}

// Options configures a Client. BaseURL and HTTPClient exist for tests.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

// NewClient constructs a Claude client.
func NewClient(apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are owned by the callers' degrade policy.
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		client:  sdk.NewClient(reqOpts...),
		model:   model,
		timeout: timeout,
		limiter: provider.NewLimiter(opts.RatePerSecond, 5),
	}, nil
}

// Complete sends a single user message and returns the first text block.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: sdk.Float(req.Temperature),
		Messages: []sdk.MessageParam{{
			Content: []sdk.ContentBlockParamUnion{{
				OfText: &sdk.TextBlockParam{Text: req.Prompt},
			}},
			Role: sdk.MessageParamRoleUser,
		}},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":      providerName,
		"model":         c.model,
		"title":         req.Title,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})

	for _, block := range resp.Content {
		if text := strings.TrimSpace(block.AsText().Text); text != "" {
			return text, nil
		}
	}
	return "", provider.Errorf(providerName, provider.KindEmpty, "no text content in response")
}

func classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return &provider.Error{
			Provider: providerName,
			Kind:     provider.KindProvider,
			Status:   apiErr.StatusCode,
			Err:      err,
		}
	}
	return provider.Wrap(providerName, provider.KindTransport, err)
}

var _ llm.Client = (*Client)(nil)
