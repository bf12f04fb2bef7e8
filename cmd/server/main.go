package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/keymint/keymint/internal/api"
	"github.com/keymint/keymint/internal/config"
	"github.com/keymint/keymint/internal/delivery"
	"github.com/keymint/keymint/internal/notify"
	"github.com/keymint/keymint/internal/service"
	"github.com/keymint/keymint/internal/storage/sql"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load configuration", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fatal("Invalid configuration", err)
	}

	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		dir := "data"
		if err := os.MkdirAll(dir, 0755); err != nil {
			fatal("Failed to create data directory", err)
		}
	}

	// Initialize storage
	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		fatal("Failed to initialize storage", err)
	}
	defer store.Close()

	// Initialize the notifier (no-op unless a Telegram token is configured)
	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken)
		if err != nil {
			fatal("Failed to initialize Telegram notifier", err)
		}
		notifier = tg
		slog.Info("Telegram notifications enabled")
	}

	// Initialize the storefront client (or file shim for testing)
	var deliveryClient delivery.Client
	if cfg.UseFileShim() {
		slog.Info("Using file shim for storefront delivery", "path", cfg.Delivery.FileShim)
		deliveryClient = delivery.NewFileShim(cfg.Delivery.FileShim)
	} else if cfg.Delivery.BaseURL != "" {
		deliveryClient = delivery.NewHTTPClient(cfg.Delivery.BaseURL, cfg.Delivery.APIKey)
	}

	// Initialize the license service
	svc := service.New(store, notifier, deliveryClient)

	// Create router
	router := api.NewRouter(svc, cfg.Auth.AdminToken)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting keymint", "addr", cfg.Server.Addr(), "driver", cfg.Database.Driver)

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("Server failed", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		fatal("Server forced to shutdown", err)
	}

	slog.Info("Server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
