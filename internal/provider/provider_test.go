package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", wantKind: KindProvider},
		{name: "empty body", status: http.StatusOK, body: "   ", wantKind: KindEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := Send(context.Background(), srv.Client(), Request{Provider: "test", URL: srv.URL, Body: map[string]string{"a": "b"}})
			if KindOf(err) != tt.wantKind {
				t.Fatalf("expected kind %s, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := Send(context.Background(), http.DefaultClient, Request{Provider: "test", Method: http.MethodGet, URL: url})
	if !Is(err, KindTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if !Retryable(err) {
		t.Fatalf("expected transport failure to be retryable")
	}
}

func TestSendJSONMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := SendJSON(context.Background(), srv.Client(), Request{
		Provider: "test",
		Method:   http.MethodGet,
		URL:      srv.URL,
		Headers:  map[string]string{"Authorization": "Bearer k"},
	}, &out)
	if !Is(err, KindMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestSendHonorsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := Send(context.Background(), srv.Client(), Request{Provider: "test", Method: http.MethodGet, URL: srv.URL, Timeout: 50 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{&Error{Provider: "x", Kind: KindProvider, Status: 400}, false},
		{&Error{Provider: "x", Kind: KindProvider, Status: 429}, true},
		{&Error{Provider: "x", Kind: KindProvider, Status: 503}, true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("bad input"), false},
		{fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), true},
		{fmt.Errorf("post: %w", io.EOF), true},
		{errors.New("invalid geofence id"), false},
		{errors.New("unexpected eof in user-supplied field"), false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestLimiterZeroRateNeverWaits(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected wait error: %v", err)
		}
	}
}
