package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "portfolio-backend/internal/auth"
	"portfolio-backend/internal/billing"
	"portfolio-backend/internal/deployments"
	"portfolio-backend/internal/documents"
	"portfolio-backend/internal/parses"
	"portfolio-backend/internal/pipeline"
	"portfolio-backend/internal/portfolios"
	"portfolio-backend/internal/services/health"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/subscriptions"
	"portfolio-backend/internal/templates"
	"portfolio-backend/internal/users"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupPolling = "POLLING"
	rateGroupHeavy   = "HEAVY"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config            config.Config
	PipelineHandler   *pipeline.Handler
	DocumentHandler   *documents.Handler
	ParseHandler      *parses.Handler
	UserHandler       *users.Handler
	GoogleAuth        *googleauth.GoogleService
	PortfolioHandler  *portfolios.Handler
	DeploymentHandler *deployments.Handler
	BillingHandler    *billing.Handler
	WebhookHandler    *subscriptions.WebhookHandler
	RateLimiter       *middleware.RateLimiter
	Health            *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault: {Rate: 10, Burst: 40},
				rateGroupPolling: {Rate: 2, Burst: 10},
				rateGroupHeavy:   {Rate: 0.5, Burst: 5},
			},
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.RateLimiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	templates.RegisterRoutes(api)

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.PipelineHandler != nil {
		deps.PipelineHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.ParseHandler != nil {
		deps.ParseHandler.RegisterRoutes(api)
		deps.ParseHandler.RegisterPollingRoutes(api)
	}
	if deps.PortfolioHandler != nil {
		deps.PortfolioHandler.RegisterRoutes(api)
		deps.PortfolioHandler.RegisterPublicRoutes(r)
	}
	if deps.DeploymentHandler != nil {
		deps.DeploymentHandler.RegisterRoutes(api)
		deps.DeploymentHandler.RegisterPollingRoutes(api)
	}
	if deps.BillingHandler != nil {
		deps.BillingHandler.RegisterRoutes(api)
	}
	if deps.WebhookHandler != nil {
		deps.WebhookHandler.RegisterRoutes(api)
	}

	return r
}

// rateGroupFor buckets status polling separately from interactive calls and
// gives the LLM-backed routes a tighter budget.
func rateGroupFor(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	switch {
	case c.Request.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/parses/"):
		return rateGroupPolling
	case c.Request.Method == http.MethodGet && path == "/api/v1/deployments/status":
		return rateGroupPolling
	case strings.HasPrefix(path, "/api/v1/resumes/"), path == "/api/v1/logos":
		return rateGroupHeavy
	case strings.HasPrefix(path, "/api/v1/webhooks/"), path == "/metrics", path == "/api/v1/health":
		return "NONE"
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
