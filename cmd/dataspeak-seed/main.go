package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dataspeak/dataspeak/internal/config"
	"github.com/dataspeak/dataspeak/internal/demo"
	"github.com/dataspeak/dataspeak/internal/observability"
	"github.com/dataspeak/dataspeak/internal/warehouse/connect"
	"github.com/dataspeak/dataspeak/internal/warehouse/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("dataspeak-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	seedCfg, err := demo.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := demo.NewGenerator(seedCfg.Seed).Generate(seedCfg)
	if err != nil {
		logger.Error("failed to generate demo data", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo data generated",
		slog.Int64("seed", seedCfg.Seed),
		slog.Int("days", seedCfg.Days),
		slog.Any("rows", data.RowCounts()),
	)

	seeder := &demo.Seeder{Logger: logger}
	switch seedCfg.Target {
	case demo.TargetPostgres:
		dbCfg, err := connect.PostgresConfig(cfg.Warehouse)
		if err != nil {
			logger.Error("invalid warehouse config", slog.Any("error", err))
			os.Exit(1)
		}
		db, err := postgres.OpenDB(ctx, dbCfg)
		if err != nil {
			logger.Error("failed to open warehouse", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		seeder.DB = db
		if err := seeder.SeedPostgres(ctx, data, seedCfg.Truncate); err != nil {
			logger.Error("failed to seed warehouse", slog.Any("error", err))
			os.Exit(1)
		}
	case demo.TargetObjectStore:
		store, err := connect.ObjectStore(ctx, cfg.ObjectStore)
		if err != nil {
			logger.Error("failed to open object store", slog.Any("error", err))
			os.Exit(1)
		}
		seeder.Store = store
		tables, err := seeder.UploadParquet(ctx, data)
		if err != nil {
			logger.Error("failed to upload demo datasets", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("set DATASPEAK_WAREHOUSE_DRIVER=duckdb and DATASPEAK_DUCKDB_DATASETS to query the upload",
			slog.String("datasets", demo.DatasetsSetting(tables)),
		)
	}
}
