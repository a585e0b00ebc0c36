// Package connect opens the configured warehouse and its backing stores.
package connect

import (
	"context"
	"fmt"
	"strings"

	"github.com/dataspeak/dataspeak/internal/config"
	s3store "github.com/dataspeak/dataspeak/internal/storage/s3"
	"github.com/dataspeak/dataspeak/internal/warehouse"
	"github.com/dataspeak/dataspeak/internal/warehouse/duckdb"
	"github.com/dataspeak/dataspeak/internal/warehouse/postgres"
)

// Connection is the opened warehouse plus the object store backing its
// datasets, if any.
type Connection struct {
	warehouse.Source
	Store *s3store.Store
}

// HealthCheck also requires the dataset bucket to be reachable.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.Source.HealthCheck(ctx); err != nil {
		return err
	}
	if c.Store != nil {
		return c.Store.HealthCheck(ctx)
	}
	return nil
}

func Warehouse(ctx context.Context, cfg config.Config) (*Connection, error) {
	switch cfg.Warehouse.Driver {
	case config.DriverPostgres:
		dbCfg, err := PostgresConfig(cfg.Warehouse)
		if err != nil {
			return nil, err
		}
		source, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		return &Connection{Source: source}, nil
	case config.DriverDuckDB:
		datasets, err := duckdb.ParseDatasets(cfg.DuckDB.Datasets)
		if err != nil {
			return nil, err
		}
		duckCfg := duckdb.Config{
			Path:         cfg.DuckDB.Path,
			Datasets:     datasets,
			QueryTimeout: cfg.Warehouse.QueryTimeout,
			MaxRows:      cfg.Warehouse.RowLimit,
		}
		var store *s3store.Store
		if len(datasets) > 0 {
			store, err = ObjectStore(ctx, cfg.ObjectStore)
			if err != nil {
				return nil, err
			}
			duckCfg.Store = store
		}
		source, err := duckdb.Open(ctx, duckCfg)
		if err != nil {
			return nil, err
		}
		return &Connection{Source: source, Store: store}, nil
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
}

func PostgresConfig(cfg config.WarehouseConfig) (postgres.DBConfig, error) {
	dsn, err := PostgresDSN(cfg)
	if err != nil {
		return postgres.DBConfig{}, err
	}
	return postgres.DBConfig{
		DSN:             dsn,
		Schema:          cfg.Schema,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		QueryTimeout:    cfg.QueryTimeout,
		MaxRows:         cfg.RowLimit,
	}, nil
}

// PostgresDSN returns the configured DSN, or one built from the discrete
// connection settings when none is set.
func PostgresDSN(cfg config.WarehouseConfig) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}
	return postgres.BuildDSN(postgres.ConnParts{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		User:     cfg.User,
		Password: cfg.Password,
		SSLMode:  cfg.SSLMode,
	})
}

func ObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (*s3store.Store, error) {
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.Endpoint,
		Region:           cfg.Region,
		Bucket:           cfg.Bucket,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		UseSSL:           cfg.UseSSL,
		Prefix:           cfg.Prefix,
		AutoCreateBucket: cfg.AutoCreateBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize object store: %w", err)
	}
	return store, nil
}
