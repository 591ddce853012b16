package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/provider"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://openrouter.ai/api/v1"
)

// Client implements llm.Client against any OpenAI-compatible chat completions
// endpoint. OpenRouter is the default.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	referer    string
	title      string
	timeout    time.Duration
	httpClient provider.Doer
	limiter    *provider.Limiter
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Referer string
	Title   string
	Timeout time.Duration
	// RatePerSecond bounds outbound calls; zero disables limiting.
	RatePerSecond float64
	HTTPClient    provider.Doer
}

// NewClient constructs a chat completions client.
func NewClient(apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout + 5*time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		referer:    opts.Referer,
		title:      opts.Title,
		timeout:    timeout,
		httpClient: httpClient,
		limiter:    provider.NewLimiter(opts.RatePerSecond, 5),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	temp := req.Temperature
	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   req.MaxTokens,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if c.referer != "" {
		headers["HTTP-Referer"] = c.referer
	}
	title := c.title
	if req.Title != "" {
		title = strings.TrimSpace(c.title + " " + req.Title)
	}
	if title != "" {
		headers["X-Title"] = title
	}

	raw, err := provider.Send(ctx, c.httpClient, provider.Request{
		Provider: providerName,
		Method:   http.MethodPost,
		URL:      c.baseURL + "/chat/completions",
		Body:     body,
		Headers:  headers,
		Timeout:  c.timeout,
	})
	if err != nil {
		var pe *provider.Error
		if errors.As(err, &pe) && pe.Kind == provider.KindProvider {
			if msg := errorMessage([]byte(pe.Message)); msg != "" {
				pe.Message = msg
			}
		}
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", provider.Wrap(providerName, provider.KindMalformed, fmt.Errorf("openai response parse: %w", err))
	}
	if parsed.Error != nil {
		return "", provider.Errorf(providerName, provider.KindProvider, "%s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", provider.Errorf(providerName, provider.KindMalformed, "openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", provider.Errorf(providerName, provider.KindEmpty, "openai response empty content")
	}
	return content, nil
}

// errorMessage pulls error.message out of a provider error body, if present.
func errorMessage(body []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == nil {
		return ""
	}
	return parsed.Error.Message
}

var _ llm.Client = (*Client)(nil)
