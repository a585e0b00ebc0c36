package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dataspeak/dataspeak/internal/config"
	"github.com/dataspeak/dataspeak/internal/migrations"
	"github.com/dataspeak/dataspeak/internal/warehouse/connect"
	"github.com/dataspeak/dataspeak/internal/warehouse/postgres"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down|status")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	flag.Parse()

	cfg, err := config.LoadFromEnv("dataspeak-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Warehouse.Driver != config.DriverPostgres {
		fmt.Fprintf(os.Stderr, "migrations only apply to the %s warehouse driver\n", config.DriverPostgres)
		os.Exit(1)
	}
	dbCfg, err := connect.PostgresConfig(cfg.Warehouse)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warehouse config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.OpenDB(ctx, dbCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runner := migrations.NewRunner()
	switch *direction {
	case "up":
		applied, err := runner.Up(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration up failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("applied %d migration(s)\n", applied)
	case "down":
		applied, err := runner.Down(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d migration(s)\n", applied)
	case "status":
		status, err := runner.Status(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration status failed: %v\n", err)
			os.Exit(1)
		}
		for _, item := range status {
			state := "pending"
			if item.Applied {
				state = "applied " + item.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%06d  %-24s %s\n", item.Version, item.Name, state)
		}
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(1)
	}
}
