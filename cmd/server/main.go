package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/dealroom/internal"
	"github.com/DukeRupert/dealroom/internal/access"
	"github.com/DukeRupert/dealroom/internal/auth"
	"github.com/DukeRupert/dealroom/internal/billing"
	"github.com/DukeRupert/dealroom/internal/cache"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/handler"
	"github.com/DukeRupert/dealroom/internal/metrics"
	"github.com/DukeRupert/dealroom/internal/middleware"
	"github.com/DukeRupert/dealroom/internal/repository"
	"github.com/DukeRupert/dealroom/internal/service"
	"github.com/DukeRupert/dealroom/internal/views"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	store := repository.NewStore(db)

	// Profile cache: Redis when configured, otherwise in-process
	profileCache, cacheCheck, err := newProfileCache(cfg, logger)
	if err != nil {
		return err
	}
	defer profileCache.Close()

	// Initialize services
	profileService := service.NewProfileService(store, profileCache, cfg.ProfileCacheTTL, logger)
	usageService := service.NewUsageService(store, service.UsageServiceConfig{
		Limits: domain.UsageLimits{
			ToolUsesPerTool: cfg.ToolUsesPerTool,
			AIQueries:       cfg.AIQueries,
		},
		Strict: cfg.UsageStrict,
	}, logger)

	var billingService billing.Service
	if cfg.BillingEnabled() {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			InvestorMonthlyPriceID: cfg.StripeInvestorMonthlyPriceID,
			InvestorYearlyPriceID:  cfg.StripeInvestorYearlyPriceID,
			EliteMonthlyPriceID:    cfg.StripeEliteMonthlyPriceID,
			EliteYearlyPriceID:     cfg.StripeEliteYearlyPriceID,
			PrivateMonthlyPriceID:  cfg.StripePrivateMonthlyPriceID,
			PrivateYearlyPriceID:   cfg.StripePrivateYearlyPriceID,
		})
	} else {
		logger.Warn("Stripe not configured, webhooks will be acknowledged without processing")
	}

	// Access control
	gate := access.NewGate(access.Policy{
		AuthPath:    cfg.AuthPath,
		UpgradePath: cfg.UpgradePath,
	}, logger)
	routes := access.NewRouteTable(cfg.AccessRoutes...)

	signer, err := views.NewSigner(cfg.CookieSecret)
	if err != nil {
		return fmt.Errorf("cookie signer: %w", err)
	}

	// Initialize middleware
	isSecure := !cfg.IsDevelopment()
	authMw := middleware.NewAuthMiddleware(auth.NewVerifier(cfg.SupabaseJWTSecret), profileService, logger)
	gateMw := middleware.NewGateMiddleware(gate, routes, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure, middleware.DefaultCSPSources(cfg.SupabaseURL))
	metricsAuthMw := middleware.NewMetricsAuth(cfg.MetricsUsername, cfg.MetricsPassword, cfg.IsDevelopment(), logger)
	if !metricsAuthMw.Configured() {
		if cfg.IsDevelopment() {
			logger.Warn("METRICS_USERNAME and METRICS_PASSWORD not set, /metrics is unprotected")
		} else {
			logger.Warn("METRICS_USERNAME and METRICS_PASSWORD not set, /metrics is disabled")
		}
	}
	apiLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer apiLimiter.Stop()
	rateLimitMw := middleware.NewRateLimitMiddleware(apiLimiter, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	api := http.NewServeMux()
	handler.NewAccessHandler(gate, routes, logger).RegisterRoutes(api)
	handler.NewUsageHandler(usageService, cfg.UpgradePath, logger).RegisterRoutes(api)
	handler.NewMeHandler(usageService, logger).RegisterRoutes(api)
	handler.NewViewsHandler(handler.ViewsConfig{
		Signer:   signer,
		Secure:   isSecure,
		Limit:    cfg.AnonViewLimit,
		AuthPath: cfg.AuthPath,
	}, logger).RegisterRoutes(api)

	mux := http.NewServeMux()

	// Health check and metrics sit outside auth and rate limiting
	checks := map[string]handler.HealthCheck{"database": db.PingContext}
	if cacheCheck != nil {
		checks["cache"] = cacheCheck
	}
	handler.NewHealthHandler(checks, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Stripe signs its own requests
	handler.NewWebhookHandler(billingService, profileService, logger).RegisterRoutes(mux)

	// JSON API: viewer resolved first so limits key by user
	mux.Handle("/api/", middleware.Stack(authMw.WithViewer, rateLimitMw.Limit)(api))

	// Everything else is the frontend behind the tier gate
	frontend := handler.NewFrontendHandler(os.DirFS(cfg.FrontendDir), logger)
	mux.Handle("/", middleware.Stack(authMw.WithViewer, gateMw.Handler)(frontend))

	globalMiddleware := middleware.Stack(
		metrics.Middleware,
		loggingMw.Handler,
		securityMw.Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           globalMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "routes", len(routes.Routes()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newProfileCache returns the configured cache and, for Redis, a health check.
func newProfileCache(cfg *internal.Config, logger *slog.Logger) (cache.Cache, handler.HealthCheck, error) {
	if cfg.RedisURL == "" {
		logger.Info("Profile cache: in-memory", "ttl", cfg.ProfileCacheTTL)
		return cache.NewMemory(time.Minute), nil, nil
	}

	rc, err := cache.NewRedisFromURL(cfg.RedisURL, "dealroom:")
	if err != nil {
		return nil, nil, fmt.Errorf("redis initialization failed: %w", err)
	}
	logger.Info("Profile cache: redis", "ttl", cfg.ProfileCacheTTL)
	return rc, rc.Health, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
