package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tomashoffer/afripulse/internal"
	"github.com/tomashoffer/afripulse/internal/api"
	"github.com/tomashoffer/afripulse/internal/config"
	"github.com/tomashoffer/afripulse/internal/db"
	"github.com/tomashoffer/afripulse/internal/logger"
	"github.com/tomashoffer/afripulse/internal/memstore"
	"github.com/tomashoffer/afripulse/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Unable to load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.SlogLevel(), cfg.LogFormat)
	slog.SetDefault(log)
	log.Info("Starting server", "env", cfg.Environment, "port", cfg.Port)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("Unable to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.SeedDemoEvents > 0 {
		if err := GenerateMediaEvents(ctx, cfg.SeedDemoEvents, store); err != nil {
			log.Error("Failed to generate demo events", "error", err)
		}
	}

	registry := internal.NewRespondentRegistry(store, cfg.DefaultCountry, cfg.DefaultLanguage)
	engine := internal.NewSessionEngine(store, cfg.FallbackCategory)
	server := api.NewServer(
		store,
		internal.NewMediaService(store),
		internal.NewWebhookService(registry, engine),
		internal.NewCatalog(store),
		api.Options{
			WebhookVerifyToken: cfg.WebhookVerifyToken,
			StaticDir:          cfg.StaticDir,
			MaxBodyBytes:       cfg.MaxBodyBytes,
			ExposeErrors:       cfg.IsDevelopment(),
		},
	)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
		}
	}
}

// openStore connects to PostgreSQL unless the config asks for the in-memory
// store. When the database is unreachable and fallback is enabled, the seeded
// memory store is used instead.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (db.Store, error) {
	if cfg.UseMemoryStore() {
		log.Info("Using in-memory store")
		return memstore.NewSeeded(), nil
	}

	store, err := openPgStore(ctx, cfg)
	if err != nil {
		if !cfg.FallbackToMemory {
			return nil, err
		}
		log.Error("Database initialization failed, falling back to in-memory store", "error", err)
		return memstore.NewSeeded(), nil
	}
	log.Info("Connected to PostgreSQL")
	return store, nil
}

func openPgStore(ctx context.Context, cfg *config.Config) (*db.PgStore, error) {
	connPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := connPool.Ping(pingCtx); err != nil {
		connPool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := tools.Migrate(ctx, connPool); err != nil {
			connPool.Close()
			return nil, err
		}
		if err := tools.Seed(ctx, connPool); err != nil {
			connPool.Close()
			return nil, err
		}
	}

	return db.NewPgStore(connPool), nil
}
