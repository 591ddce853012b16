package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "portfolio-backend/internal/auth"
	"portfolio-backend/internal/billing"
	"portfolio-backend/internal/brandlogo"
	"portfolio-backend/internal/deployments"
	"portfolio-backend/internal/documents"
	"portfolio-backend/internal/enrich"
	"portfolio-backend/internal/extraction"
	"portfolio-backend/internal/gravatar"
	"portfolio-backend/internal/llm"
	anthropicllm "portfolio-backend/internal/llm/anthropic"
	openai "portfolio-backend/internal/llm/openai"
	"portfolio-backend/internal/ocr"
	"portfolio-backend/internal/parses"
	"portfolio-backend/internal/pipeline"
	"portfolio-backend/internal/portfolios"
	"portfolio-backend/internal/queue"
	"portfolio-backend/internal/search"
	"portfolio-backend/internal/services/health"
	"portfolio-backend/internal/shared/cache"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/server"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/storage/db"
	"portfolio-backend/internal/shared/storage/object"
	localstore "portfolio-backend/internal/shared/storage/object/local"
	s3store "portfolio-backend/internal/shared/storage/object/s3"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/subscriptions"
	"portfolio-backend/internal/templates"
	"portfolio-backend/internal/users"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Store         object.ObjectStore
	Cache         cache.Cache
	Queue         queue.Client
	Pipeline      *pipeline.Service
	Documents     *documents.Service
	Parses        *parses.Service
	Users         *users.Service
	Portfolios    *portfolios.Service
	Deployments   *deployments.Service
	Subscriptions *subscriptions.Service
	Billing       *billing.Service
	GoogleAuth    *googleauth.GoogleService
}

type repos struct {
	documents     documents.Repo
	parses        parses.Repo
	users         users.Repo
	portfolios    portfolios.Repo
	deployments   deployments.Repo
	subscriptions subscriptions.Repo
}

// Build wires every service from cfg and mounts them on a router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	kv, err := cache.New(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Cache:  kv,
		Queue:  queueClient,
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}
	return app, nil
}

// Close waits for background deployments and releases connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Deployments != nil {
		a.Deployments.Wait()
	}
	if closer, ok := a.Cache.(io.Closer); ok {
		_ = closer.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.Queue.URL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.Queue.URL, cfg.Queue.Region)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildRepos(sqlDB *sql.DB) repos {
	if sqlDB == nil {
		return repos{
			documents:     documents.NewMemoryRepo(),
			parses:        parses.NewMemoryRepo(),
			users:         users.NewMemoryRepo(),
			portfolios:    portfolios.NewMemoryRepo(),
			deployments:   deployments.NewMemoryRepo(),
			subscriptions: subscriptions.NewMemoryRepo(),
		}
	}
	return repos{
		documents:     &documents.PGRepo{DB: sqlDB},
		parses:        &parses.PGRepo{DB: sqlDB},
		users:         &users.PGRepo{DB: sqlDB},
		portfolios:    &portfolios.PGRepo{DB: sqlDB},
		deployments:   &deployments.PGRepo{DB: sqlDB},
		subscriptions: &subscriptions.PGRepo{DB: sqlDB},
	}
}

// buildOCR prefers Mistral and falls back to the embedded text layer. With
// no Mistral key the text layer is the only adapter.
func buildOCR(cfg config.OCRConfig) ocr.Adapter {
	local := ocr.PDFTextAdapter{}
	if cfg.Provider == "local" || strings.TrimSpace(cfg.APIKey) == "" {
		return local
	}
	return ocr.Fallback{
		Primary:   ocr.NewMistralClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, nil),
		Secondary: local,
	}
}

func buildLLM(cfg config.LLMConfig) (llm.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.Provider})
		return llm.PlaceholderClient{}, nil
	}
	switch cfg.Provider {
	case "anthropic":
		return anthropicllm.NewClient(cfg.APIKey, cfg.Model, anthropicllm.Options{
			BaseURL:       cfg.BaseURL,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
		})
	case "openai", "openrouter":
		return openai.NewClient(cfg.APIKey, cfg.Model, openai.Options{
			BaseURL:       cfg.BaseURL,
			Referer:       cfg.Referer,
			Title:         cfg.Title,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.Provider)
	}
}

func buildEnricher(cfg config.Config, client llm.Client, kv cache.Cache) *enrich.Enricher {
	e := &enrich.Enricher{
		Picker:      client,
		Summarizer:  client,
		Avatars:     gravatar.NewClient(cfg.Avatar.BaseURL, cfg.Avatar.Timeout, nil),
		Cache:       kv,
		CacheTTL:    cfg.Logos.CacheTTL,
		Concurrency: enrich.DefaultConcurrency,
	}
	if cfg.Search.APIKey != "" && cfg.Search.EngineID != "" {
		e.Search = search.NewGoogleClient(cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.BaseURL, cfg.Search.Timeout, nil)
	}
	if cfg.Logos.APIKey != "" {
		e.Logos = brandlogo.NewClient(cfg.Logos.APIKey, cfg.Logos.BaseURL, cfg.Logos.Timeout, nil)
	}
	return e
}

// BuildPipeline assembles OCR, extraction and enrichment from cfg.
func BuildPipeline(cfg config.Config, kv cache.Cache) (*pipeline.Service, error) {
	client, err := buildLLM(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return pipeline.NewService(buildOCR(cfg.OCR), extraction.New(client), buildEnricher(cfg, client, kv)), nil
}

func buildServices(app *App) error {
	cfg := app.Config
	r := buildRepos(app.DB)

	pipelineSvc, err := BuildPipeline(cfg, app.Cache)
	if err != nil {
		return err
	}

	docSvc := &documents.Service{
		Store:           app.Store,
		Repo:            r.documents,
		StorageProvider: cfg.ObjectStoreType,
	}
	parseSvc := &parses.Service{
		Repo:      r.parses,
		Documents: docSvc,
		Pipeline:  pipelineSvc,
		Queue:     app.Queue,
	}
	userSvc := users.NewService(r.users)
	googleAuthSvc := googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}, userSvc)

	var exporter templates.PDFExporter = templates.DisabledExporter{}
	if cfg.PDFExport {
		exporter = templates.NewChromedpExporter()
	}
	portfolioSvc := portfolios.NewService(r.portfolios, exporter)
	deploySvc := deployments.NewService(r.deployments, portfolioSvc, &deployments.SitePublisher{
		Store:      app.Store,
		RootDomain: cfg.Publish.RootDomain,
	}, cfg.Publish.DeployTimeout)
	subSvc := subscriptions.NewService(r.subscriptions, portfolioSvc, subscriptions.DeployFunc(
		func(ctx context.Context, portfolioID string) error {
			_, err := deploySvc.Deploy(ctx, portfolioID)
			return err
		},
	))

	deps := server.RouterDeps{
		Config:            cfg,
		PipelineHandler:   pipeline.NewHandler(pipelineSvc),
		DocumentHandler:   documents.NewHandler(docSvc),
		ParseHandler:      parses.NewHandler(parseSvc),
		UserHandler:       users.NewHandler(userSvc),
		GoogleAuth:        googleAuthSvc,
		PortfolioHandler:  portfolios.NewHandler(portfolioSvc),
		DeploymentHandler: deployments.NewHandler(deploySvc),
		RateLimiter:       middleware.NewRateLimiter(nil),
		Health:            buildHealth(app),
	}

	if strings.TrimSpace(cfg.Billing.WebhookSecret) != "" {
		deps.WebhookHandler = subscriptions.NewWebhookHandler(subSvc, cfg.Billing.WebhookSecret)
	}
	if strings.TrimSpace(cfg.Billing.SecretKey) != "" {
		gateway, err := billing.NewStripeGateway(cfg.Billing.SecretKey, billing.StripeOptions{})
		if err != nil {
			return err
		}
		app.Billing = &billing.Service{
			Gateway:     gateway,
			Users:       userSvc,
			Customers:   subSvc,
			Deployments: deploySvc,
			Config: billing.Config{
				PublicBaseURL: cfg.Publish.PublicBaseURL,
				RootDomain:    cfg.Publish.RootDomain,
				PriceCents:    cfg.Billing.PriceCents,
				Currency:      cfg.Billing.Currency,
				ProductName:   cfg.Billing.ProductName,
			},
		}
		deps.BillingHandler = billing.NewHandler(app.Billing)
	} else {
		telemetry.Info("bootstrap.billing_disabled", nil)
	}

	app.Pipeline = pipelineSvc
	app.Documents = docSvc
	app.Parses = parseSvc
	app.Users = userSvc
	app.Portfolios = portfolioSvc
	app.Deployments = deploySvc
	app.Subscriptions = subSvc
	app.GoogleAuth = googleAuthSvc
	app.Router = server.NewRouter(deps)
	return nil
}

func buildHealth(app *App) *health.Service {
	checks := map[string]health.Check{}
	if app.DB != nil {
		checks["database"] = app.DB.PingContext
	}
	if pinger, ok := app.Cache.(interface{ Ping(context.Context) error }); ok {
		checks["cache"] = pinger.Ping
	}
	return health.NewService(checks)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
