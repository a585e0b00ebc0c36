package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dataspeak/dataspeak/internal/agent"
	"github.com/dataspeak/dataspeak/internal/config"
	"github.com/dataspeak/dataspeak/internal/observability"
	"github.com/dataspeak/dataspeak/internal/warehouse"
)

type ReadinessCheck func(ctx context.Context) error

// SchemaSource is the part of a warehouse the schema endpoint reads.
type SchemaSource interface {
	Dialect() string
	ListTables(ctx context.Context) ([]warehouse.Table, error)
	DescribeTable(ctx context.Context, name string) (warehouse.Table, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Agent             agent.Agent
	AgentTimeout      time.Duration
	Schema            SchemaSource
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
	})
	mux.HandleFunc("GET /api/ready", func(w http.ResponseWriter, r *http.Request) {
		handleReady(cfg, deps, w, r)
	})
	mux.Handle("GET /api/metrics", promhttp.Handler())

	guard := protect(cfg, deps)
	mux.Handle("POST /api/query", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})))
	mux.Handle("GET /api/schema", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})))

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	return chain(mux, middlewares...)
}

// protect returns the wrapper for routes that need an API key. When auth is
// required but no middleware was wired, those routes fail closed.
func protect(cfg config.Config, deps Dependencies) func(http.Handler) http.Handler {
	switch {
	case !cfg.Auth.Required:
		return func(next http.Handler) http.Handler { return next }
	case deps.AuthMiddleware != nil:
		return deps.AuthMiddleware
	}
	if deps.Logger != nil {
		deps.Logger.Error("auth required but auth middleware missing")
	}
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
		})
	}
}

func handleReady(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Readiness != nil {
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", "service dependencies are not ready", true, map[string]any{
				"failures": strings.Split(err.Error(), "\n"),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "service": cfg.Service.Name})
}

// CheckWarehouse pings the warehouse the agent queries.
func CheckWarehouse(source interface{ HealthCheck(context.Context) error }) ReadinessCheck {
	return func(ctx context.Context) error {
		if source == nil {
			return errors.New("warehouse: not configured")
		}
		if err := source.HealthCheck(ctx); err != nil {
			return fmt.Errorf("warehouse: %w", err)
		}
		return nil
	}
}

// CheckAgentConfig fails when the agent is enabled without a key or model.
func CheckAgentConfig(cfg config.Config) ReadinessCheck {
	return func(context.Context) error {
		switch {
		case !cfg.AI.Enabled:
			return nil
		case cfg.AI.APIKey == "":
			return errors.New("agent: api key is not configured")
		case cfg.AI.Model == "":
			return errors.New("agent: model is not configured")
		}
		return nil
	}
}

// CombineReadinessChecks runs every non-nil check and joins the failures.
func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	return func(ctx context.Context) error {
		var errs []error
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

type errorBody struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Context   map[string]any `json:"context,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, errorBody{
		ErrorCode: code,
		Message:   message,
		Retryable: retryable,
		Context:   extra,
		TraceID:   observability.TraceIDFromContext(ctx),
	})
}
