package llm

import (
	"context"
	"errors"
)

// Client abstracts chat completion providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn chat completion.
type Request struct {
	// System is an optional system message.
	System string
	Prompt string
	// Temperature is passed through as-is; zero means deterministic output.
	Temperature float64
	// Title tags the call for provider dashboards and logs.
	Title     string
	MaxTokens int
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient stands in when no provider key is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}

// ClientFunc adapts a function into a Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
