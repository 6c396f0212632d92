// Storefront - shopper-facing catalog, cart and checkout API backed by Wix Headless.
// Each shopper session holds its own anonymous visitor tokens and cart cache.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/gateway"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/session"
	"storefront/internal/wix"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

const pruneInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize structured logger
	logger := initLogger(cfg.Environment, cfg.LogLevel)

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_url", cfg.Store.StoreURL),
		slog.String("client_id_source", cfg.ClientIDSource),
		slog.Float64("platform_rate_limit", cfg.Store.PlatformRateLimit),
		slog.Duration("session_ttl", cfg.Store.SessionTTL),
	)
	if cfg.ClientIDSource == "demo" {
		logger.Warn("using the demo store client id; set WIX_CLIENT_ID for a real store")
	}

	// One platform client shared by all sessions; it owns the outbound rate limit
	client := wix.NewClient(cfg.Store.WixClientID, wix.ClientOptions{
		BaseURL:   cfg.Store.WixAPIBaseURL,
		RateLimit: cfg.Store.PlatformRateLimit,
	})
	gatewayConfig := wix.GatewayConfig{
		AllProductsCategory: cfg.Store.AllProductsCategory,
		PromotedCategory:    cfg.Store.PromotedCategory,
	}

	// Every new session starts as a fresh anonymous visitor
	registry := session.NewRegistry(func(ctx context.Context) (gateway.Gateway, error) {
		gw, err := wix.NewVisitor(ctx, client, gatewayConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("creating visitor: %w", err)
		}
		return gw, nil
	}, session.Config{
		TTL:      cfg.Store.SessionTTL,
		StoreURL: cfg.Store.StoreURL,
	}, logger)
	go registry.Run(ctx, pruneInterval)

	h := handler.New(registry, version, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → logging → version → session → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.Version(version, logger),
		middleware.Session(registry, logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
			slog.String("version", version),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stop()

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped", slog.Int("sessions", registry.Len()))
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger(environment, levelName string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
