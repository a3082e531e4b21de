package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DukeRupert/dealroom/internal/access"
)

// minCookieSecretLength is the shortest COOKIE_SECRET accepted for signing
// the anonymous view cookies.
const minCookieSecretLength = 32

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Supabase session verification
	SupabaseURL       string // Project URL, used for the CSP connect-src
	SupabaseJWTSecret string // HS256 secret that signs access tokens

	// Signed device cookies (anonymous views, recently viewed)
	CookieSecret string

	// Profile cache. Empty RedisURL selects the in-process cache.
	RedisURL        string
	ProfileCacheTTL time.Duration

	// Metering
	AnonViewLimit   int
	ToolUsesPerTool int
	AIQueries       int
	UsageStrict     bool // Serialize check-then-insert in the database

	// Access gate
	AuthPath     string
	UpgradePath  string
	AccessRoutes []access.Route

	// Built frontend served behind the gate
	FrontendDir string

	// Stripe Billing Configuration
	// In development, the webhook acknowledges events without processing if these are empty.
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	// Stripe Price IDs for subscription plans
	StripeInvestorMonthlyPriceID string
	StripeInvestorYearlyPriceID  string
	StripeEliteMonthlyPriceID    string
	StripeEliteYearlyPriceID     string
	StripePrivateMonthlyPriceID  string
	StripePrivateYearlyPriceID   string

	// API rate limiting per user or client IP
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		SupabaseURL: getEnv("SUPABASE_URL", ""),

		RedisURL:        getEnv("REDIS_URL", ""),
		ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", 5*time.Minute),

		AnonViewLimit:   getEnvInt("ANON_VIEW_LIMIT", 5),
		ToolUsesPerTool: getEnvInt("TOOL_USES_PER_TOOL", 3),
		AIQueries:       getEnvInt("AI_QUERIES", 5),
		UsageStrict:     getEnvBool("USAGE_STRICT_QUOTA", false),

		AuthPath:    getEnv("AUTH_PATH", access.DefaultAuthPath),
		UpgradePath: getEnv("UPGRADE_PATH", access.DefaultUpgradePath),

		FrontendDir: getEnv("FRONTEND_DIR", "web/dist"),

		// Stripe billing (optional in development)
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		StripeInvestorMonthlyPriceID: getEnv("STRIPE_INVESTOR_MONTHLY_PRICE_ID", ""),
		StripeInvestorYearlyPriceID:  getEnv("STRIPE_INVESTOR_YEARLY_PRICE_ID", ""),
		StripeEliteMonthlyPriceID:    getEnv("STRIPE_ELITE_MONTHLY_PRICE_ID", ""),
		StripeEliteYearlyPriceID:     getEnv("STRIPE_ELITE_YEARLY_PRICE_ID", ""),
		StripePrivateMonthlyPriceID:  getEnv("STRIPE_PRIVATE_MONTHLY_PRICE_ID", ""),
		StripePrivateYearlyPriceID:   getEnv("STRIPE_PRIVATE_YEARLY_PRICE_ID", ""),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.SupabaseJWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	if cfg.SupabaseJWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}

	cfg.CookieSecret = os.Getenv("COOKIE_SECRET")
	if len(cfg.CookieSecret) < minCookieSecretLength {
		return nil, fmt.Errorf("COOKIE_SECRET must be at least %d characters", minCookieSecretLength)
	}

	// Gated sections default to the built-in map
	cfg.AccessRoutes = access.DefaultRoutes
	if routes := strings.TrimSpace(os.Getenv("ACCESS_ROUTES")); routes != "" {
		parsed, err := access.ParseRoutes(routes)
		if err != nil {
			return nil, fmt.Errorf("ACCESS_ROUTES: %w", err)
		}
		cfg.AccessRoutes = parsed
	}

	if cfg.AnonViewLimit <= 0 {
		return nil, fmt.Errorf("ANON_VIEW_LIMIT must be positive, got: %d", cfg.AnonViewLimit)
	}
	if cfg.ToolUsesPerTool <= 0 || cfg.AIQueries <= 0 {
		return nil, fmt.Errorf("TOOL_USES_PER_TOOL and AI_QUERIES must be positive")
	}
	if cfg.RateLimitRequests <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got: %d", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got: %s", cfg.RateLimitWindow)
	}

	// A webhook secret without an API key is almost always a deploy mistake
	if cfg.StripeWebhookSecret != "" && cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required when STRIPE_WEBHOOK_SECRET is set")
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// BillingEnabled reports whether Stripe webhooks should be processed.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookSecret != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
