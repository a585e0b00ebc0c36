package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/dataspeak/dataspeak/internal/chart"
	"github.com/dataspeak/dataspeak/internal/observability"
	"github.com/dataspeak/dataspeak/internal/warehouse"
)

var ErrEmptyQuery = errors.New("query is required")

const (
	defaultMaxSteps = 12
	defaultRowLimit = 200
)

type Request struct {
	Query string
}

type Result struct {
	Response  chart.Response
	Model     string
	Steps     int
	ToolCalls int
}

// Agent answers a natural-language question about the warehouse.
type Agent interface {
	Run(ctx context.Context, req Request) (Result, error)
}

type Config struct {
	Model     model.ToolCallingChatModel
	ModelName string
	Source    warehouse.Source
	RowLimit  int
	MaxSteps  int
	Logger    *slog.Logger
}

// Service runs a ReAct loop: the model calls warehouse tools until it can
// answer with a response envelope.
type Service struct {
	runner       *react.Agent
	modelName    string
	systemPrompt string
	logger       *slog.Logger
}

var _ Agent = (*Service)(nil)

func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("warehouse source is required")
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = defaultRowLimit
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tools := newToolset(cfg.Source, cfg.RowLimit, logger)
	runner, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: countingModel{ToolCallingChatModel: cfg.Model},
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: []tool.BaseTool{
				tools.showTables(),
				tools.describeTable(),
				tools.inspectQuery(),
				tools.runQuery(),
			},
		},
		MaxStep: cfg.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("create react agent: %w", err)
	}

	return &Service{
		runner:       runner,
		modelName:    cfg.ModelName,
		systemPrompt: systemPrompt(cfg.Source.Dialect(), cfg.RowLimit),
		logger:       logger,
	}, nil
}

func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	start := time.Now()
	stats := &runStats{}
	ctx = withRunStats(ctx, stats)

	message, err := s.runner.Generate(ctx, []*schema.Message{
		schema.SystemMessage(s.systemPrompt),
		schema.UserMessage(query),
	})
	if err == nil && message == nil {
		err = fmt.Errorf("model returned no message")
	}
	var response chart.Response
	if err == nil {
		response, err = parseAnswer(message.Content)
	}

	result := Result{
		Response:  response,
		Model:     s.modelName,
		Steps:     int(stats.modelCalls.Load()),
		ToolCalls: int(stats.toolCalls.Load()),
	}
	elapsed := time.Since(start)
	attrs := []any{
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.Int("steps", result.Steps),
		slog.Int("tool_calls", result.ToolCalls),
		slog.String("duration", elapsed.String()),
	}
	if err != nil {
		observability.ObserveAgentRun(observability.OutcomeError, "", elapsed)
		s.logger.ErrorContext(ctx, "agent_run_failed", append(attrs, slog.String("error", err.Error()))...)
		return Result{}, fmt.Errorf("agent run: %w", err)
	}

	observability.ObserveAgentRun(observability.OutcomeOK, string(response.ResponseType), elapsed)
	s.logger.InfoContext(ctx, "agent_run", append(attrs, slog.String("response_type", string(response.ResponseType)))...)
	return result, nil
}

type runStats struct {
	modelCalls atomic.Int64
	toolCalls  atomic.Int64
}

type statsKey struct{}

func withRunStats(ctx context.Context, stats *runStats) context.Context {
	return context.WithValue(ctx, statsKey{}, stats)
}

func runStatsFromContext(ctx context.Context) *runStats {
	stats, _ := ctx.Value(statsKey{}).(*runStats)
	return stats
}

// countingModel counts model round trips of the current run.
type countingModel struct {
	model.ToolCallingChatModel
}

func (m countingModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if stats := runStatsFromContext(ctx); stats != nil {
		stats.modelCalls.Add(1)
	}
	return m.ToolCallingChatModel.Generate(ctx, input, opts...)
}

func (m countingModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if stats := runStatsFromContext(ctx); stats != nil {
		stats.modelCalls.Add(1)
	}
	return m.ToolCallingChatModel.Stream(ctx, input, opts...)
}

func (m countingModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := m.ToolCallingChatModel.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return countingModel{ToolCallingChatModel: bound}, nil
}
