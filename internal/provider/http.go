package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/shared/telemetry"
)

const maxErrorBody = 512

// Doer is the subset of *http.Client used by provider clients.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one outbound call.
type Request struct {
	Provider string
	Method   string
	URL      string
	Body     any
	Headers  map[string]string
	Timeout  time.Duration
}

// Send performs req and returns the raw 2xx body. Failures are classified:
// network errors are TransportFailure, non-2xx is ProviderFailure and an
// empty body is EmptyResult.
func Send(ctx context.Context, client Doer, req Request) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if req.Method == "" {
		req.Method = http.MethodPost
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		bs, err := json.Marshal(req.Body)
		if err != nil {
			return nil, Wrap(req.Provider, KindMalformed, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(bs)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, Wrap(req.Provider, KindTransport, fmt.Errorf("build request: %w", err))
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	reqID := uuid.NewString()
	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		telemetry.Error("provider.http.send_error", map[string]any{
			"provider":   req.Provider,
			"req_id":     reqID,
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return nil, Wrap(req.Provider, KindTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(req.Provider, KindTransport, fmt.Errorf("read response: %w", err))
	}

	telemetry.Info("provider.http.response", map[string]any{
		"provider":   req.Provider,
		"req_id":     reqID,
		"status":     resp.StatusCode,
		"bytes":      len(raw),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode/100 != 2 {
		return nil, &Error{
			Provider: req.Provider,
			Kind:     KindProvider,
			Status:   resp.StatusCode,
			Message:  truncate(strings.TrimSpace(string(raw)), maxErrorBody),
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, Errorf(req.Provider, KindEmpty, "empty response body")
	}
	return raw, nil
}

// SendJSON performs req and decodes the 2xx body into out. Decode failures
// are MalformedResponse.
func SendJSON(ctx context.Context, client Doer, req Request, out any) error {
	raw, err := Send(ctx, client, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return Wrap(req.Provider, KindMalformed, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
