// Command stats runs the statistics service: hit ingestion and view aggregation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventhub/config"
	delivery "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
	"eventhub/internal/metrics"
	"eventhub/internal/repository/memory"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/services"
)

func main() {
	logger := config.NewLogger("stats")
	if err := run(logger); err != nil {
		logger.Error("stats stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadStats()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	metrics.InitStats()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hits domain.HitRepository
	switch cfg.Storage {
	case "memory":
		logger.Warn("using in-memory hit storage, hits are lost on restart")
		hits = memory.NewHitRepository()
	default:
		db, pool, err := postgres.OpenStatsDB(ctx, postgres.PoolConfig{
			DSN:             cfg.DBUrl,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			ConnectAttempts: cfg.ConnectAttempts,
			RetryDelay:      2 * time.Second,
		}, logger)
		if err != nil {
			return fmt.Errorf("open stats database: %w", err)
		}
		defer pool.Close()
		defer db.Close()
		hits = postgres.NewHitRepository(db)
	}

	limiter := middleware.NewRateLimiter(cfg.HitRateLimit, cfg.HitRateBurst, 3*time.Minute)
	go limiter.Run(ctx, time.Minute)

	statsSvc := services.NewStatsService(hits, cfg.ContextTimeout)
	router := delivery.NewStatsRouter(controllers.NewStatsController(logger, statsSvc, limiter), logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	logger.Info("server stopped")
	return nil
}
