package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/querypilot/querypilot/internal/api"
	"github.com/querypilot/querypilot/internal/auth"
	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/database"
	"github.com/querypilot/querypilot/internal/execute"
	"github.com/querypilot/querypilot/internal/guard"
	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/ratelimit"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/sqlgen"
)

func main() {
	cfg, err := config.LoadFromEnv("querypilot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("failed to open data source", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	introspector, err := schema.NewDBIntrospector(db, cfg.Database.Driver)
	if err != nil {
		logger.Error("failed to build schema introspector", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := llm.New(llm.Settings{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize generation client", slog.Any("error", err))
		os.Exit(1)
	}

	pipeline := &sqlgen.Pipeline{
		Client:           client,
		Policy:           guard.NewPolicy(cfg.Pipeline.MaxResultRows),
		MaxRetries:       cfg.Pipeline.MaxRetries,
		EnableGuardrails: cfg.Pipeline.EnableGuardrails,
		Logger:           logger,
	}
	executor := &execute.Executor{
		DB:      db,
		MaxRows: cfg.Pipeline.MaxFetchRows,
		Timeout: cfg.Pipeline.StatementTimeout,
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CheckDatabase(db),
		DependencyTimeout: time.Second,
		Introspector:      introspector,
		Pipeline:          pipeline,
		Executor:          executor,
		Summarizer:        client,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer func() { _ = redisClient.Close() }()
		deps.RateLimiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.PerMinute, time.Minute, logger)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
