package gravatar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHashNormalizesEmail(t *testing.T) {
	// Reference hash from the Gravatar documentation.
	if got := Hash("  MyEmailAddress@example.com "); got != "0bc83cb571cd1c50ba6f3e8a78ef1346" {
		t.Fatalf("unexpected hash %s", got)
	}
}

func TestFetchReturnsDataURI(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if !strings.HasPrefix(r.URL.Path, "/avatar/") || r.URL.Query().Get("d") != "404" || r.URL.Query().Get("s") != "200" {
			t.Errorf("unexpected url %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "image/jpeg")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, srv.Client())
	got, err := c.Fetch(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != "data:image/jpeg;base64,/9j/" {
		t.Fatalf("unexpected data uri %q", got)
	}
	if len(methods) != 2 || methods[0] != http.MethodHead || methods[1] != http.MethodGet {
		t.Fatalf("expected HEAD then GET, got %v", methods)
	}
}

func TestFetchMissingAvatar(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, srv.Client())
	got, err := c.Fetch(context.Background(), "nobody@example.com")
	if err != nil || got != "" {
		t.Fatalf("expected empty result, got %q, %v", got, err)
	}
	if calls != 1 {
		t.Fatalf("expected only the HEAD probe, got %d calls", calls)
	}
}

func TestFetchEmptyEmail(t *testing.T) {
	c := NewClient("http://unused.invalid", time.Second, nil)
	if got, err := c.Fetch(context.Background(), " "); got != "" || err != nil {
		t.Fatalf("expected no-op, got %q, %v", got, err)
	}
}
