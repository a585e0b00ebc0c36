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

	"github.com/dataspeak/dataspeak/internal/agent"
	"github.com/dataspeak/dataspeak/internal/api"
	"github.com/dataspeak/dataspeak/internal/auth"
	"github.com/dataspeak/dataspeak/internal/config"
	"github.com/dataspeak/dataspeak/internal/observability"
	"github.com/dataspeak/dataspeak/internal/warehouse/connect"
)

func main() {
	cfg, err := config.LoadFromEnv("dataspeak-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	conn, err := connect.Warehouse(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open warehouse", slog.String("driver", cfg.Warehouse.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	var queryAgent agent.Agent
	if cfg.AI.Enabled {
		chatModel, err := agent.NewOpenAIModel(context.Background(), agent.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize chat model", slog.Any("error", err))
			os.Exit(1)
		}
		queryAgent, err = agent.New(context.Background(), agent.Config{
			Model:     chatModel,
			ModelName: cfg.AI.Model,
			Source:    conn.Source,
			RowLimit:  cfg.Warehouse.RowLimit,
			MaxSteps:  cfg.AI.MaxSteps,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("failed to initialize query agent", slog.Any("error", err))
			os.Exit(1)
		}
	}

	deps := api.Dependencies{
		Logger:       logger,
		Agent:        queryAgent,
		AgentTimeout: cfg.AI.Timeout,
		Schema:       conn.Source,
		Readiness: api.CombineReadinessChecks(
			api.CheckWarehouse(conn),
			api.CheckAgentConfig(cfg),
		),
		DependencyTimeout: 2 * time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator, auth.RoleQueryReader)
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
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("warehouse", conn.Dialect()),
			slog.Bool("object_store", conn.Store != nil),
			slog.Bool("agent_enabled", queryAgent != nil),
		)
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
