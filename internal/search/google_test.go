package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfolio-backend/internal/provider"
)

func TestSearchBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cx1" || q.Get("q") != "Acme Corp" || q.Get("num") != "3" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("fields") != "items(title,link,snippet)" {
			t.Errorf("unexpected fields %q", q.Get("fields"))
		}
		_, _ = w.Write([]byte(`{"items":[{"title":"Acme","link":"https://www.acme.com/","snippet":"Acme Corp home"},{"title":"no link"}]}`))
	}))
	defer srv.Close()

	c := NewGoogleClient("k", "cx1", srv.URL, time.Second, srv.Client())
	items, err := c.Search(context.Background(), "Acme Corp", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 1 || items[0].Link != "https://www.acme.com/" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewGoogleClient("k", "cx1", srv.URL, time.Second, srv.Client())
	if _, err := c.Search(context.Background(), "nobody", 3); !provider.Is(err, provider.KindEmpty) {
		t.Fatalf("expected EmptyResult, got %v", err)
	}
}

func TestSearchRequiresCredentials(t *testing.T) {
	c := NewGoogleClient("", "", "", time.Second, nil)
	if _, err := c.Search(context.Background(), "x", 3); err == nil {
		t.Fatalf("expected error without credentials")
	}
}
