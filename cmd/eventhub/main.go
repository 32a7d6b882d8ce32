// Command eventhub runs the main service: events, participation requests, moderation and search.
//
// @title eventhub API
// @version 1.0
// @description Event publishing, participation requests and moderation.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventhub/config"
	_ "eventhub/docs"
	"eventhub/internal/adapters/auth"
	"eventhub/internal/adapters/cache"
	"eventhub/internal/adapters/email"
	"eventhub/internal/adapters/statsclient"
	delivery "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
	"eventhub/internal/metrics"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/services"
)

func main() {
	logger := config.NewLogger("eventhub")
	if err := run(logger); err != nil {
		logger.Error("eventhub stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	metrics.InitEventhub()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.ContextTimeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	requestRepo := postgres.NewRequestRepository(db)
	userRepo := postgres.NewUserRepository(db)
	tx := postgres.NewTransactor(db)

	// Adapters
	stats := statsclient.New(statsclient.Config{
		BaseURL:   cfg.StatsURL,
		Timeout:   cfg.StatsTimeout,
		QueueSize: cfg.HitQueueSize,
		Workers:   cfg.HitWorkers,
	}, nil, logger)

	var viewCache domain.ViewCache
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cache.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		viewCache = cache.NewViewCache(rdb, cfg.ViewCacheTTL)
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.SESRegion,
			AccessKeyID:        cfg.Email.SESAccessKeyID,
			SecretAccessKey:    cfg.Email.SESSecretAccessKey,
			Endpoint:           cfg.Email.SESEndpoint,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	notifier := services.NewEmailNotifier(userRepo, services.NewEmailService(mailer, renderer, logger), logger, cfg.NotifyTimeout)

	// Services
	eventSvc := services.NewEventService(eventRepo, tx, stats, notifier, logger, cfg.ContextTimeout)
	requestSvc := services.NewRequestService(eventRepo, requestRepo, tx, notifier, logger, cfg.ContextTimeout)
	searchSvc := services.NewSearchService(eventRepo, stats, viewCache, nil, logger, cfg.ContextTimeout)

	ips, err := helpers.NewIPResolver(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	mux := delivery.NewRouter(delivery.Controllers{
		Events:   controllers.NewEventController(logger, eventSvc, searchSvc, stats, cfg.StatsApp, ips),
		Requests: controllers.NewRequestController(logger, requestSvc),
		Admin:    controllers.NewAdminController(logger, eventSvc, searchSvc),
	}, auth.NewJWTVerifier(cfg.JWTSecret), logger)

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(logger, handler)
	if len(cfg.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.AllowedOrigins, handler)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
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
	if err := stats.Close(shutdownCtx); err != nil {
		logger.Warn("hit queue not drained", "err", err)
	}
	notifier.Wait()
	logger.Info("server stopped")
	return nil
}
