package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dataspeak/dataspeak/internal/warehouse"
)

type Options struct {
	Dialect      string
	Schema       string
	ReadOnlyTx   bool
	QueryTimeout time.Duration
	MaxRows      int
}

// Source implements warehouse.Source over any database/sql driver that
// exposes information_schema.
type Source struct {
	db   *sql.DB
	opts Options
}

func New(db *sql.DB, opts Options) (*Source, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if strings.TrimSpace(opts.Dialect) == "" {
		return nil, fmt.Errorf("dialect is required")
	}
	if strings.TrimSpace(opts.Schema) == "" {
		return nil, fmt.Errorf("schema is required")
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 200
	}
	return &Source{db: db, opts: opts}, nil
}

func (s *Source) Dialect() string {
	return s.opts.Dialect
}

func (s *Source) ListTables(ctx context.Context) ([]warehouse.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT table_schema, table_name, table_type
FROM information_schema.tables
WHERE table_schema = $1
ORDER BY table_name`, s.opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]warehouse.Table, 0)
	for rows.Next() {
		var table warehouse.Table
		var tableType string
		if err := rows.Scan(&table.Schema, &table.Name, &tableType); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		table.Kind = tableKind(tableType)
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

func (s *Source) DescribeTable(ctx context.Context, name string) (warehouse.Table, error) {
	schema, tableName := s.splitName(name)
	if tableName == "" {
		return warehouse.Table{}, fmt.Errorf("table name is required")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, schema, tableName)
	if err != nil {
		return warehouse.Table{}, fmt.Errorf("describe table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	table := warehouse.Table{Schema: schema, Name: tableName, Kind: "table"}
	for rows.Next() {
		var column warehouse.Column
		var nullable string
		if err := rows.Scan(&column.Name, &column.DataType, &nullable); err != nil {
			return warehouse.Table{}, fmt.Errorf("scan column: %w", err)
		}
		column.Nullable = strings.EqualFold(nullable, "YES")
		table.Columns = append(table.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return warehouse.Table{}, fmt.Errorf("iterate columns: %w", err)
	}
	if len(table.Columns) == 0 {
		return warehouse.Table{}, fmt.Errorf("%w: %s.%s", warehouse.ErrTableNotFound, schema, tableName)
	}
	return table, nil
}

func (s *Source) Query(ctx context.Context, sqlText string, rowLimit int) (warehouse.Result, error) {
	if !warehouse.IsReadOnlySQL(sqlText) {
		return warehouse.Result{}, warehouse.ErrNotReadOnly
	}
	limit := rowLimit
	if limit <= 0 || limit > s.opts.MaxRows {
		limit = s.opts.MaxRows
	}

	start := time.Now()
	statement := fmt.Sprintf("SELECT * FROM (\n%s\n) AS q LIMIT %d", warehouse.StripTrailingSemicolons(sqlText), limit+1)
	columns, rows, err := s.run(ctx, statement)
	if err != nil {
		return warehouse.Result{}, fmt.Errorf("execute query: %w", err)
	}

	result := warehouse.Result{Columns: columns, Rows: rows}
	if len(result.Rows) > limit {
		result.Rows = result.Rows[:limit]
		result.Truncated = true
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (s *Source) Explain(ctx context.Context, sqlText string) (string, error) {
	if !warehouse.IsReadOnlySQL(sqlText) {
		return "", warehouse.ErrNotReadOnly
	}
	_, rows, err := s.run(ctx, "EXPLAIN\n"+warehouse.StripTrailingSemicolons(sqlText)+"\n")
	if err != nil {
		return "", fmt.Errorf("explain query: %w", err)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		// duckdb returns (explain_key, explain_value); the plan is always last.
		if text, ok := row[len(row)-1].(string); ok && text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Source) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s warehouse: %w", s.opts.Dialect, err)
	}
	return nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Source) run(ctx context.Context, statement string) ([]string, [][]any, error) {
	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}

	var q queryer = s.db
	if s.opts.ReadOnlyTx {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, nil, fmt.Errorf("begin read-only tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		q = tx
	}

	rows, err := q.QueryContext(ctx, statement)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("query timed out after %s: %w", s.opts.QueryTimeout, err)
		}
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, resultRows, nil
}

func (s *Source) splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if schema, table, ok := strings.Cut(name, "."); ok {
		return strings.Trim(schema, `"`), strings.Trim(table, `"`)
	}
	return s.opts.Schema, strings.Trim(name, `"`)
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case *big.Int:
			if typed.IsInt64() {
				normalized[i] = typed.Int64()
			} else {
				normalized[i] = typed.String()
			}
		case interface{ Float64() float64 }:
			// duckdb DECIMAL
			normalized[i] = typed.Float64()
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func tableKind(tableType string) string {
	switch strings.ToUpper(strings.TrimSpace(tableType)) {
	case "BASE TABLE":
		return "table"
	case "VIEW":
		return "view"
	default:
		return strings.ToLower(strings.TrimSpace(tableType))
	}
}
