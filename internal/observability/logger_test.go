package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/dataspeak/dataspeak/internal/config"
)

func TestNewLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{Profile: config.ProfileDev}
	cfg.Service.Name = "dataspeak-api"
	cfg.Observability.LogJSON = true
	cfg.Observability.LogLevel = slog.LevelInfo

	logger := NewLogger(cfg, &buf)
	logger.Info("chat model configured", slog.String("api_key", "sk-live-123"), slog.String("model", "gpt-4o"))
	logger.Debug("hidden")

	out := buf.String()
	if strings.Contains(out, "sk-live-123") || !strings.Contains(out, `"api_key":"[redacted]"`) {
		t.Fatalf("log output = %s", out)
	}
	if !strings.Contains(out, `"service":"dataspeak-api"`) || !strings.Contains(out, `"model":"gpt-4o"`) {
		t.Fatalf("log output = %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line logged at info level: %s", out)
	}
}

func TestTraceIDFromContext(t *testing.T) {
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
	ctx := ContextWithTraceID(context.Background(), "abc")
	if got := TraceIDFromContext(ctx); got != "abc" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
}
