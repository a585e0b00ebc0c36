package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dataspeak/dataspeak/internal/observability"
	"github.com/dataspeak/dataspeak/internal/warehouse"
)

const (
	toolShowTables    = "show_tables"
	toolDescribeTable = "describe_table"
	toolInspectQuery  = "inspect_query"
	toolRunQuery      = "run_query"
)

type showTablesInput struct{}

type showTablesOutput struct {
	Dialect string            `json:"dialect,omitempty"`
	Tables  []warehouse.Table `json:"tables,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type describeTableInput struct {
	TableName string `json:"table_name"`
}

type describeTableOutput struct {
	Table *warehouse.Table `json:"table,omitempty"`
	Error string           `json:"error,omitempty"`
}

type queryInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type inspectQueryOutput struct {
	Plan  string `json:"plan,omitempty"`
	Error string `json:"error,omitempty"`
}

type runQueryOutput struct {
	Columns   []string `json:"columns,omitempty"`
	Rows      [][]any  `json:"rows,omitempty"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// toolset exposes a warehouse to the model. Failures are reported back to
// the model as {"error": ...} payloads so it can correct itself.
type toolset struct {
	source   warehouse.Source
	rowLimit int
	logger   *slog.Logger
}

func newToolset(source warehouse.Source, rowLimit int, logger *slog.Logger) *toolset {
	return &toolset{source: source, rowLimit: rowLimit, logger: logger}
}

func (t *toolset) showTables() tool.InvokableTool {
	return t_utils.NewTool[showTablesInput, *showTablesOutput](
		&schema.ToolInfo{
			Name:        toolShowTables,
			Desc:        "List the tables and views that can be queried.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, _ showTablesInput) (*showTablesOutput, error) {
			tables, err := t.source.ListTables(ctx)
			if err != nil {
				return &showTablesOutput{Error: t.fail(ctx, toolShowTables, err)}, nil
			}
			t.succeed(ctx, toolShowTables, slog.Int("tables", len(tables)))
			return &showTablesOutput{Dialect: t.source.Dialect(), Tables: tables}, nil
		},
	)
}

func (t *toolset) describeTable() tool.InvokableTool {
	return t_utils.NewTool[describeTableInput, *describeTableOutput](
		&schema.ToolInfo{
			Name: toolDescribeTable,
			Desc: "Describe the columns of a table: name, data type and nullability.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"table_name": {
					Type:     schema.String,
					Desc:     "Table name, optionally qualified with its schema (schema.table)",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input describeTableInput) (*describeTableOutput, error) {
			name := strings.TrimSpace(input.TableName)
			if name == "" {
				return &describeTableOutput{Error: t.fail(ctx, toolDescribeTable, errors.New("table_name is required"))}, nil
			}
			table, err := t.source.DescribeTable(ctx, name)
			if err != nil {
				return &describeTableOutput{Error: t.fail(ctx, toolDescribeTable, err)}, nil
			}
			t.succeed(ctx, toolDescribeTable, slog.String("table", name))
			return &describeTableOutput{Table: &table}, nil
		},
	)
}

func (t *toolset) inspectQuery() tool.InvokableTool {
	return t_utils.NewTool[queryInput, *inspectQueryOutput](
		&schema.ToolInfo{
			Name: toolInspectQuery,
			Desc: "Show the execution plan of a read-only SQL query without running it.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "A single SELECT statement",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input queryInput) (*inspectQueryOutput, error) {
			plan, err := t.source.Explain(ctx, input.Query)
			if err != nil {
				return &inspectQueryOutput{Error: t.fail(ctx, toolInspectQuery, err)}, nil
			}
			t.succeed(ctx, toolInspectQuery)
			return &inspectQueryOutput{Plan: plan}, nil
		},
	)
}

func (t *toolset) runQuery() tool.InvokableTool {
	return t_utils.NewTool[queryInput, *runQueryOutput](
		&schema.ToolInfo{
			Name: toolRunQuery,
			Desc: "Run a single read-only SQL query and return its rows. Results are capped at the configured row limit.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "A single SELECT statement",
					Required: true,
				},
				"limit": {
					Type:     schema.Integer,
					Desc:     "Maximum number of rows to return",
					Required: false,
				},
			}),
		},
		func(ctx context.Context, input queryInput) (*runQueryOutput, error) {
			limit := input.Limit
			if limit <= 0 || limit > t.rowLimit {
				limit = t.rowLimit
			}
			result, err := t.source.Query(ctx, input.Query, limit)
			if err != nil {
				return &runQueryOutput{Error: t.fail(ctx, toolRunQuery, err)}, nil
			}
			observability.ObserveWarehouseQuery(t.source.Dialect(), len(result.Rows), result.Duration)
			t.succeed(ctx, toolRunQuery, slog.Int("rows", len(result.Rows)), slog.Bool("truncated", result.Truncated))
			return &runQueryOutput{
				Columns:   result.Columns,
				Rows:      result.Rows,
				RowCount:  len(result.Rows),
				Truncated: result.Truncated,
			}, nil
		},
	)
}

func (t *toolset) succeed(ctx context.Context, name string, attrs ...any) {
	t.count(ctx, name, observability.OutcomeOK)
	t.logger.DebugContext(ctx, "agent_tool_call", append([]any{
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("tool", name),
	}, attrs...)...)
}

func (t *toolset) fail(ctx context.Context, name string, err error) string {
	t.count(ctx, name, observability.OutcomeError)
	t.logger.DebugContext(ctx, "agent_tool_call_failed",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("tool", name),
		slog.String("error", err.Error()),
	)
	return err.Error()
}

func (t *toolset) count(ctx context.Context, name, outcome string) {
	observability.IncrementToolCall(name, outcome)
	if stats := runStatsFromContext(ctx); stats != nil {
		stats.toolCalls.Add(1)
	}
}
