package demo

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dataspeak/dataspeak/internal/storage"
)

const insertBatchSize = 500

type Seeder struct {
	DB     *sql.DB
	Store  storage.DatasetWriter
	Logger *slog.Logger
}

// SeedPostgres loads the dataset into the demo sales tables created by the
// migrations. With truncate the tables are emptied first and their id
// sequences reset.
func (s *Seeder) SeedPostgres(ctx context.Context, data Dataset, truncate bool) error {
	if s.DB == nil {
		return fmt.Errorf("database is required")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if truncate {
		if _, err := tx.ExecContext(ctx, `TRUNCATE `+strings.Join(Tables, ", ")+` RESTART IDENTITY CASCADE`); err != nil {
			return fmt.Errorf("truncate demo tables: %w", err)
		}
	}

	inserts := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{TableCustomers, []string{"id", "first_name", "last_name", "email", "city", "country", "segment", "created_at"}, customerRows(data.Customers)},
		{TableProducts, []string{"id", "sku", "name", "category", "unit_price", "created_at"}, productRows(data.Products)},
		{TableOrders, []string{"id", "customer_id", "status", "channel", "ordered_at", "total_amount"}, orderRows(data.Orders)},
		{TableOrderItems, []string{"id", "order_id", "product_id", "quantity", "unit_price"}, orderItemRows(data.OrderItems)},
	}
	for _, insert := range inserts {
		if err := insertRows(ctx, tx, insert.table, insert.columns, insert.rows); err != nil {
			return err
		}
		if len(insert.rows) == 0 {
			continue
		}
		resetSequence := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))`, insert.table, insert.table)
		if _, err := tx.ExecContext(ctx, resetSequence); err != nil {
			return fmt.Errorf("reset %s id sequence: %w", insert.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	s.logger().InfoContext(ctx, "demo data seeded",
		slog.String("target", TargetPostgres),
		slog.Int("customers", len(data.Customers)),
		slog.Int("products", len(data.Products)),
		slog.Int("orders", len(data.Orders)),
		slog.Int("order_items", len(data.OrderItems)),
	)
	return nil
}

// UploadParquet writes one parquet object per demo table and returns the
// uploaded tables.
func (s *Seeder) UploadParquet(ctx context.Context, data Dataset) ([]ParquetTable, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	tables, err := data.ParquetTables()
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		if _, err := s.Store.Publish(ctx, table.Key, table.Data, storage.ParquetContentType); err != nil {
			return nil, fmt.Errorf("upload %s: %w", table.Key, err)
		}
		s.logger().InfoContext(ctx, "demo dataset uploaded",
			slog.String("table", table.Name),
			slog.String("key", table.Key),
			slog.Int64("rows", table.RowCount),
			slog.Int("bytes", len(table.Data)),
		)
	}
	return tables, nil
}

func (s *Seeder) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		batch := rows[start:end]

		var query strings.Builder
		query.WriteString("INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES ")
		args := make([]any, 0, len(batch)*len(columns))
		for i, row := range batch {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteByte('(')
			for j := range columns {
				if j > 0 {
					query.WriteString(", ")
				}
				query.WriteString("$" + strconv.Itoa(len(args)+j+1))
			}
			query.WriteByte(')')
			args = append(args, row...)
		}

		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("insert %s rows %d-%d: %w", table, start, end, err)
		}
	}
	return nil
}

func customerRows(items []Customer) [][]any {
	rows := make([][]any, 0, len(items))
	for _, c := range items {
		rows = append(rows, []any{c.ID, c.FirstName, c.LastName, c.Email, c.City, c.Country, c.Segment, c.CreatedAt})
	}
	return rows
}

func productRows(items []Product) [][]any {
	rows := make([][]any, 0, len(items))
	for _, p := range items {
		rows = append(rows, []any{p.ID, p.SKU, p.Name, p.Category, p.UnitPrice, p.CreatedAt})
	}
	return rows
}

func orderRows(items []Order) [][]any {
	rows := make([][]any, 0, len(items))
	for _, o := range items {
		rows = append(rows, []any{o.ID, o.CustomerID, o.Status, o.Channel, o.OrderedAt, o.TotalAmount})
	}
	return rows
}

func orderItemRows(items []OrderItem) [][]any {
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice})
	}
	return rows
}
