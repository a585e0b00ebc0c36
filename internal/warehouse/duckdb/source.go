package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/dataspeak/dataspeak/internal/storage"
	"github.com/dataspeak/dataspeak/internal/warehouse"
	"github.com/dataspeak/dataspeak/internal/warehouse/sqldb"
)

const (
	Dialect = "duckdb"
	Schema  = "main"
)

type Config struct {
	// Path is the database file. Empty means an in-memory database.
	Path string
	// Datasets maps view names to parquet object keys in Store.
	Datasets     map[string]string
	Store        storage.DatasetReader
	QueryTimeout time.Duration
	MaxRows      int
}

// Source is a DuckDB warehouse. Parquet datasets are staged in a private
// work directory and exposed as views until Close.
type Source struct {
	*sqldb.Source
	workDir string
}

var _ warehouse.Source = (*Source)(nil)

func Open(ctx context.Context, cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Path) == "" && len(cfg.Datasets) == 0 {
		return nil, fmt.Errorf("duckdb path or datasets are required")
	}
	if len(cfg.Datasets) > 0 && cfg.Store == nil {
		return nil, fmt.Errorf("object store is required for duckdb datasets")
	}

	dsn := strings.TrimSpace(cfg.Path)
	if dsn != "" && len(cfg.Datasets) == 0 {
		dsn += "?access_mode=read_only"
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	var workDir string
	if len(cfg.Datasets) > 0 {
		workDir, err = os.MkdirTemp("", "dataspeak-duckdb-")
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create duckdb work dir: %w", err)
		}
		if err := attachDatasets(ctx, db, cfg.Store, workDir, cfg.Datasets); err != nil {
			_ = db.Close()
			_ = os.RemoveAll(workDir)
			return nil, err
		}
	}

	if err := lockDown(ctx, db, workDir); err != nil {
		_ = db.Close()
		if workDir != "" {
			_ = os.RemoveAll(workDir)
		}
		return nil, err
	}

	source, err := sqldb.New(db, sqldb.Options{
		Dialect:      Dialect,
		Schema:       Schema,
		QueryTimeout: cfg.QueryTimeout,
		MaxRows:      cfg.MaxRows,
	})
	if err != nil {
		_ = db.Close()
		if workDir != "" {
			_ = os.RemoveAll(workDir)
		}
		return nil, err
	}
	return &Source{Source: source, workDir: workDir}, nil
}

func (s *Source) Close() error {
	err := s.Source.Close()
	if s.workDir != "" {
		err = errors.Join(err, os.RemoveAll(s.workDir))
	}
	return err
}

// ParseDatasets parses "table=key,table2=key2".
func ParseDatasets(raw string) (map[string]string, error) {
	datasets := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, key, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		key = strings.TrimSpace(key)
		if !ok || name == "" || key == "" {
			return nil, fmt.Errorf("invalid dataset entry %q", part)
		}
		if err := storage.ValidateDatasetName(name); err != nil {
			return nil, err
		}
		if _, exists := datasets[name]; exists {
			return nil, fmt.Errorf("duplicate dataset %q", name)
		}
		datasets[name] = key
	}
	return datasets, nil
}

func attachDatasets(ctx context.Context, db *sql.DB, store storage.DatasetReader, workDir string, datasets map[string]string) error {
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		localPath := filepath.Join(workDir, name+".parquet")
		if err := stageDataset(ctx, store, datasets[name], localPath); err != nil {
			return fmt.Errorf("stage dataset %q: %w", name, err)
		}

		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, warehouse.QuoteIdent(name), quoteString(localPath))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for dataset %q: %w", name, err)
		}
	}
	return nil
}

// lockDown stops queries from reaching the file system outside workDir and
// freezes the configuration so they cannot turn access back on.
func lockDown(ctx context.Context, db *sql.DB, workDir string) error {
	statements := make([]string, 0, 3)
	if workDir != "" {
		statements = append(statements, fmt.Sprintf("SET allowed_directories = [%s]", quoteString(workDir+string(filepath.Separator))))
	}
	statements = append(statements,
		"SET enable_external_access = false",
		"SET lock_configuration = true",
	)
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("restrict duckdb access: %w", err)
		}
	}
	return nil
}

// stageDataset copies the object at key to localPath, where read_parquet can
// reach it.
func stageDataset(ctx context.Context, store storage.DatasetReader, key, localPath string) (err error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	file, err := os.OpenFile(localPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	_, err = io.Copy(file, body)
	return err
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
