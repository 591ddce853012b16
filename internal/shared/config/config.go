package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	RedisURL        string
	Env             string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	OCR       OCRConfig
	LLM       LLMConfig
	Search    SearchConfig
	Logos     LogoConfig
	Avatar    AvatarConfig
	Billing   BillingConfig
	Publish   PublishConfig
	Queue     QueueConfig
	PDFExport bool
}

// OCRConfig selects and configures the OCR adapter.
type OCRConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Referer  string
	Title    string
	Timeout  time.Duration
	// RatePerSecond bounds outbound calls; zero disables the limiter.
	RatePerSecond float64
}

type SearchConfig struct {
	APIKey   string
	EngineID string
	BaseURL  string
	Timeout  time.Duration
}

type LogoConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type AvatarConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BillingConfig carries Stripe credentials and pricing.
type BillingConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceCents    int64
	Currency      string
	ProductName   string
}

// PublishConfig describes where published portfolios live.
type PublishConfig struct {
	RootDomain    string
	PublicBaseURL string
	DeployTimeout time.Duration
}

// QueueConfig configures the parse-job queue and its workers. An empty URL
// means parses run in the API process.
type QueueConfig struct {
	URL               string
	Region            string
	VisibilitySeconds int
	Concurrency       int
	ShutdownTimeout   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	llmProvider := strings.ToLower(getEnv("LLM_PROVIDER", "openrouter"))

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		RedisURL:        getEnv("REDIS_URL", ""),
		Env:             env,

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),

		OCR: OCRConfig{
			Provider: strings.ToLower(getEnv("OCR_PROVIDER", "mistral")),
			APIKey:   getEnv("MISTRAL_API_KEY", ""),
			BaseURL:  getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
			Model:    getEnv("MISTRAL_OCR_MODEL", "mistral-ocr-latest"),
			Timeout:  getDuration("OCR_TIMEOUT_SECONDS", 60*time.Second),
		},
		LLM: LLMConfig{
			Provider:      llmProvider,
			APIKey:        llmAPIKey(llmProvider),
			BaseURL:       getEnv("LLM_BASE_URL", defaultLLMBaseURL(llmProvider)),
			Model:         getEnv("LLM_MODEL", defaultLLMModel(llmProvider)),
			Referer:       getEnv("LLM_HTTP_REFERER", "https://typefolio.xyz"),
			Title:         getEnv("LLM_APP_TITLE", "Typefolio"),
			Timeout:       getDuration("LLM_TIMEOUT_SECONDS", 45*time.Second),
			RatePerSecond: getFloat("LLM_RATE_PER_SECOND", 5),
		},
		Search: SearchConfig{
			APIKey:   getEnv("GOOGLE_CSE_API_KEY", ""),
			EngineID: getEnv("GOOGLE_CSE_ID", ""),
			BaseURL:  getEnv("GOOGLE_CSE_BASE_URL", "https://www.googleapis.com/customsearch/v1"),
			Timeout:  getDuration("SEARCH_TIMEOUT_SECONDS", 10*time.Second),
		},
		Logos: LogoConfig{
			APIKey:   getEnv("BRANDFETCH_API_KEY", ""),
			BaseURL:  getEnv("BRANDFETCH_BASE_URL", "https://api.brandfetch.com/v2"),
			Timeout:  getDuration("LOGO_TIMEOUT_SECONDS", 10*time.Second),
			CacheTTL: getDuration("LOGO_CACHE_TTL_SECONDS", 7*24*time.Hour),
		},
		Avatar: AvatarConfig{
			BaseURL: getEnv("GRAVATAR_BASE_URL", "https://www.gravatar.com"),
			Timeout: getDuration("AVATAR_TIMEOUT_SECONDS", 5*time.Second),
		},
		Billing: BillingConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceCents:    int64(getInt("HOSTING_PRICE_CENTS", 500)),
			Currency:      getEnv("HOSTING_CURRENCY", "usd"),
			ProductName:   getEnv("HOSTING_PRODUCT_NAME", "Portfolio Hosting"),
		},
		Publish: PublishConfig{
			RootDomain:    getEnv("ROOT_DOMAIN", "typefolio.xyz"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
			DeployTimeout: getDuration("DEPLOY_TIMEOUT_SECONDS", 2*time.Minute),
		},
		Queue: QueueConfig{
			URL:               getEnv("SQS_QUEUE_URL", ""),
			Region:            getEnv("SQS_REGION", getEnv("AWS_REGION", "us-east-1")),
			VisibilitySeconds: getInt("SQS_VISIBILITY_TIMEOUT_SECONDS", 600),
			Concurrency:       getInt("WORKER_CONCURRENCY", 4),
			ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		},
		PDFExport: getBool("PDF_EXPORT_ENABLED", false),
	}
}

func llmAPIKey(provider string) string {
	switch provider {
	case "anthropic":
		return getEnv("ANTHROPIC_API_KEY", "")
	case "openai":
		return getEnv("OPENAI_API_KEY", "")
	default:
		return getEnv("OPENROUTER_API_KEY", "")
	}
}

func defaultLLMBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "anthropic":
		return ""
	default:
		return "https://openrouter.ai/api/v1"
	}
}

func defaultLLMModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-3-5-haiku-latest"
	default:
		return "deepseek/deepseek-chat-v3-0324"
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// getDuration reads a whole number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	n := getInt(key, -1)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
