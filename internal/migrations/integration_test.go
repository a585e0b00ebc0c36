//go:build integration

package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestDemoSchemaRoundTrip(t *testing.T) {
	db := openScratchDatabase(t)
	runner := NewRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	applied, err := runner.Up(ctx, db, 0)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if again, err := runner.Up(ctx, db, 0); err != nil || again != 0 {
		t.Fatalf("second Up() = %d, %v; want 0, nil", again, err)
	}
	for _, relation := range []string{"customers", "products", "orders", "order_items", "daily_revenue"} {
		if !relationExists(t, db, relation) {
			t.Fatalf("%s missing after Up()", relation)
		}
	}

	status, err := runner.Status(ctx, db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	for _, item := range status {
		if !item.Applied || item.AppliedAt.IsZero() {
			t.Fatalf("status = %+v, want all applied", status)
		}
	}

	reverted, err := runner.Down(ctx, db, applied)
	if err != nil || reverted != applied {
		t.Fatalf("Down() = %d, %v; want %d", reverted, err, applied)
	}
	if relationExists(t, db, "orders") {
		t.Fatal("orders still present after Down()")
	}
}

// openScratchDatabase creates a throwaway database next to the one in
// DATASPEAK_TEST_WAREHOUSE_DSN and drops it when the test ends.
func openScratchDatabase(t *testing.T) *sql.DB {
	t.Helper()
	adminDSN := strings.TrimSpace(os.Getenv("DATASPEAK_TEST_WAREHOUSE_DSN"))
	if adminDSN == "" {
		t.Skip("DATASPEAK_TEST_WAREHOUSE_DSN is not set")
	}
	parsed, err := url.Parse(adminDSN)
	if err != nil || strings.Trim(parsed.Path, "/") == "" {
		t.Fatalf("DATASPEAK_TEST_WAREHOUSE_DSN must be a postgres URL with a database: %v", err)
	}

	admin, err := sql.Open("pgx", adminDSN)
	if err != nil {
		t.Fatalf("open admin db: %v", err)
	}
	name := fmt.Sprintf("dataspeak_it_%d", time.Now().UnixNano())
	if _, err := admin.Exec(`CREATE DATABASE ` + name); err != nil {
		_ = admin.Close()
		t.Fatalf("create scratch db: %v", err)
	}

	scratch := *parsed
	scratch.Path = "/" + name
	db, err := sql.Open("pgx", scratch.String())
	if err != nil {
		t.Fatalf("open scratch db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		_, _ = admin.Exec(`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, name)
		if _, err := admin.Exec(`DROP DATABASE ` + name); err != nil {
			t.Errorf("drop scratch db: %v", err)
		}
		_ = admin.Close()
	})
	return db
}

func relationExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT to_regclass('public.' || $1) IS NOT NULL`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("look up %s: %v", name, err)
	}
	return exists
}
