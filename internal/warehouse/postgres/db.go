package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dataspeak/dataspeak/internal/warehouse/sqldb"
)

const Dialect = "postgres"

type DBConfig struct {
	DSN             string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	MaxRows         int
}

// ConnParts are the discrete connection settings used when no DSN is given.
type ConnParts struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string
}

func BuildDSN(parts ConnParts) (string, error) {
	if strings.TrimSpace(parts.Host) == "" {
		return "", fmt.Errorf("database host is required")
	}
	if strings.TrimSpace(parts.Database) == "" {
		return "", fmt.Errorf("database name is required")
	}
	port := strings.TrimSpace(parts.Port)
	if port == "" {
		port = "5432"
	}
	sslMode := strings.TrimSpace(parts.SSLMode)
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(strings.TrimSpace(parts.Host), port),
		Path:     "/" + strings.TrimSpace(parts.Database),
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	if parts.User != "" {
		if parts.Password != "" {
			dsn.User = url.UserPassword(parts.User, parts.Password)
		} else {
			dsn.User = url.User(parts.User)
		}
	}
	return dsn.String(), nil
}

func Open(ctx context.Context, cfg DBConfig) (*sqldb.Source, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	schema := cfg.Schema
	if strings.TrimSpace(schema) == "" {
		schema = "public"
	}
	source, err := sqldb.New(db, sqldb.Options{
		Dialect:      Dialect,
		Schema:       schema,
		ReadOnlyTx:   true,
		QueryTimeout: cfg.QueryTimeout,
		MaxRows:      cfg.MaxRows,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return source, nil
}

// OpenDB opens and pings a pooled connection; migrations and seeding use it directly.
func OpenDB(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse db: %w", err)
	}

	return db, nil
}
