package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	sharedauth "portfolio-backend/internal/shared/auth"
	"portfolio-backend/internal/users"
)

type recordingStore struct {
	got []users.User
}

func (r *recordingStore) UpsertFromAuth(ctx context.Context, user users.User) error {
	r.got = append(r.got, user)
	return nil
}

func testConfig(ui string) GoogleConfig {
	return GoogleConfig{ClientID: "cid", ClientSecret: "secret", RedirectURL: "http://localhost/cb", UIRedirect: ui}
}

func newGoogleTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer at" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":"42","email":"jane@example.com","name":"Jane","picture":"https://img/p.png"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleCallbackUpsertsUserAndIssuesToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := newGoogleTestServer(t)
	store := &recordingStore{}

	svc := NewGoogleService(testConfig("http://ui.test/auth"), store)
	svc.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	svc.userInfoURL = srv.URL + "/userinfo"
	state := svc.states.issue(time.Now())

	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=abc", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d: %s", resp.Code, resp.Body.String())
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil || !strings.HasPrefix(loc.String(), "http://ui.test/auth") {
		t.Fatalf("unexpected redirect %q", resp.Header().Get("Location"))
	}
	claims, err := sharedauth.VerifyJWT(loc.Query().Get("token"))
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Sub != "google:42" || claims.Email != "jane@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(store.got) != 1 || store.got[0].ID != "google:42" || store.got[0].PictureURL != "https://img/p.png" {
		t.Fatalf("unexpected upserts %+v", store.got)
	}
}

func TestGoogleCallbackRejectsUnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService(testConfig("http://ui.test"), nil)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=abc", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStateStoreExpiresAndConsumesOnce(t *testing.T) {
	s := newStateStore(time.Minute)
	now := time.Now()
	live := s.issue(now)
	stale := s.issue(now.Add(-2 * time.Minute))

	if !s.redeem(live, now) {
		t.Fatalf("expected live state to be accepted")
	}
	if s.redeem(live, now) {
		t.Fatalf("expected state to be single use")
	}
	if s.redeem(stale, now) {
		t.Fatalf("expected expired state to be rejected")
	}
}

func TestStateStoreSweepsWhenFull(t *testing.T) {
	s := newStateStore(time.Minute)
	past := time.Now().Add(-time.Hour)
	for i := 0; i < maxPendingStates; i++ {
		s.issue(past)
	}
	s.issue(time.Now())
	if len(s.pending) != 1 {
		t.Fatalf("expected expired states swept, %d remain", len(s.pending))
	}
}

func TestGoogleCallbackFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := newGoogleTestServer(t)

	tests := []struct {
		name     string
		tokenURL string
		infoPath string
		query    string
		want     int
	}{
		{name: "provider error", query: "error=access_denied", want: http.StatusBadRequest},
		{name: "exchange fails", tokenURL: srv.URL + "/missing", infoPath: "/userinfo", want: http.StatusBadRequest},
		{name: "profile fails", tokenURL: srv.URL + "/token", infoPath: "/missing", want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewGoogleService(testConfig("http://ui.test"), nil)
			svc.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: tt.tokenURL}
			svc.userInfoURL = srv.URL + tt.infoPath
			r := gin.New()
			svc.RegisterRoutes(r.Group("/api/v1"))

			query := tt.query
			if query == "" {
				query = "state=" + svc.states.issue(time.Now()) + "&code=abc"
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?"+query, nil))
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestStartRequiresConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService(GoogleConfig{}, nil)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestStartRedirectsToProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService(testConfig("http://ui.test"), nil)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))

	if resp.Code != http.StatusFound || !strings.Contains(resp.Header().Get("Location"), "client_id=cid") {
		t.Fatalf("unexpected start response %d %q", resp.Code, resp.Header().Get("Location"))
	}
}
