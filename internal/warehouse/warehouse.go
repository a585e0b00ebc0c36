package warehouse

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrNotReadOnly   = errors.New("only read-only statements are allowed")
)

type Table struct {
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Columns []Column `json:"columns,omitempty"`
}

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

type Result struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Truncated bool          `json:"truncated"`
	Duration  time.Duration `json:"-"`
}

// Source is the database the agent inspects and queries.
type Source interface {
	Dialect() string
	ListTables(ctx context.Context) ([]Table, error)
	DescribeTable(ctx context.Context, name string) (Table, error)
	Query(ctx context.Context, sqlText string, rowLimit int) (Result, error)
	Explain(ctx context.Context, sqlText string) (string, error)
	HealthCheck(ctx context.Context) error
	Close() error
}
