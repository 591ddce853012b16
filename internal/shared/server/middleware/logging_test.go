package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/telemetry"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(nil) })
	return &buf
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode log json: %v (%q)", err, buf.String())
	}
	return payload
}

func TestLoggingIncludesEntityFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestID(), Auth(), Logging())
	router.GET("/api/v1/parses/:id", func(c *gin.Context) {
		c.Set(LogDocumentID, "doc-1")
		c.Set(LogParseID, c.Param("id"))
		c.Set(LogTransition, "queued->processing")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parses/parse-1", nil)
	req.Header.Set("X-Guest-Id", "guest1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	payload := lastLogLine(t, buf)
	want := map[string]any{
		"msg":               "request.complete",
		"level":             "info",
		"route":             "/api/v1/parses/:id",
		"user_id":           "guest:guest1",
		"document_id":       "doc-1",
		"parse_id":          "parse-1",
		"status_transition": "queued->processing",
	}
	for key, val := range want {
		if payload[key] != val {
			t.Fatalf("field %s: expected %v, got %v", key, val, payload[key])
		}
	}
	if _, ok := payload["portfolio_id"]; ok {
		t.Fatalf("unset entity ids should be omitted")
	}
	if _, ok := payload["request_id"]; !ok {
		t.Fatalf("missing request_id")
	}
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		status int
		level  string
	}{
		{status: http.StatusOK, level: "info"},
		{status: http.StatusNotFound, level: "warning"},
		{status: http.StatusBadGateway, level: "error"},
	}
	for _, tt := range tests {
		buf := captureLogs(t)
		router := gin.New()
		router.Use(Logging())
		router.GET("/x", func(c *gin.Context) { c.Status(tt.status) })
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if got := lastLogLine(t, buf)["level"]; got != tt.level {
			t.Fatalf("status %d: expected level %s, got %v", tt.status, tt.level, got)
		}
	}
}

func TestLoggingSkipsHealthyProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	router := gin.New()
	router.Use(Logging())
	router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if buf.Len() != 0 {
		t.Fatalf("expected no log line, got %q", buf.String())
	}
}
