package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	sharedauth "portfolio-backend/internal/shared/auth"
	"portfolio-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(NewService(repo)).RegisterRoutes(api)
	return r, repo
}

func send(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestOnboardCreatesThenUpdates(t *testing.T) {
	router, repo := newTestRouter(t)
	guest := map[string]string{"X-Guest-Id": "g-1"}

	first := send(router, http.MethodPost, "/api/v1/users",
		`{"email":"Jane@Example.com","name":"Jane Doe","use_case":"job search","referral_source":"twitter"}`, guest)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	second := send(router, http.MethodPost, "/api/v1/users", `{"email":"jane@example.com","name":"Jane D."}`, guest)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d", second.Code)
	}

	var user User
	if err := json.Unmarshal(second.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.ID != "guest:g-1" || user.Email != "jane@example.com" || user.Name != "Jane D." {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.UseCase != "job search" || user.ReferralSource != "twitter" {
		t.Fatalf("expected onboarding answers kept, got %+v", user)
	}
	stored, _ := repo.GetByID(t.Context(), "guest:g-1")
	if !stored.CreatedAt.Equal(user.CreatedAt) {
		t.Fatalf("created_at changed on update")
	}
}

func TestOnboardValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	guest := map[string]string{"X-Guest-Id": "g-1"}

	tests := []struct {
		name string
		body string
	}{
		{name: "bad email", body: `{"email":"not-an-email","name":"Jane"}`},
		{name: "missing name", body: `{"email":"jane@example.com"}`},
		{name: "malformed", body: `{"email":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(router, http.MethodPost, "/api/v1/users", tt.body, guest)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
		})
	}
}

func TestMe(t *testing.T) {
	router, repo := newTestRouter(t)

	guestResp := send(router, http.MethodGet, "/api/v1/me", "", map[string]string{"X-Guest-Id": "g-1"})
	if guestResp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guests, got %d", guestResp.Code)
	}

	token, err := sharedauth.SignJWT(sharedauth.Claims{Sub: "google:123", Email: "a@b.co"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	bearer := map[string]string{"Authorization": "Bearer " + token}

	missing := send(router, http.MethodGet, "/api/v1/me", "", bearer)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before onboarding, got %d", missing.Code)
	}

	if err := repo.Upsert(t.Context(), User{ID: "google:123", Email: "a@b.co", Name: "A"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	found := send(router, http.MethodGet, "/api/v1/me", "", bearer)
	if found.Code != http.StatusOK || !strings.Contains(found.Body.String(), `"email":"a@b.co"`) {
		t.Fatalf("unexpected response %d %s", found.Code, found.Body.String())
	}
}
