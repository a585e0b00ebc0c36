package migrations

import (
	"strings"
	"testing"
)

func TestDemoSalesMigrationCreatesTables(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_demo_sales.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE customers",
		"CREATE TABLE products",
		"CREATE TABLE orders",
		"CREATE TABLE order_items",
		"REFERENCES customers (id)",
		"REFERENCES orders (id)",
		"CREATE INDEX idx_orders_ordered_at",
	}
	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	items, err := loadMigrations(embeddedFS)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) < 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Name != "demo_sales" || items[1].Name != "demo_sales_views" {
		t.Fatalf("names = %q, %q", items[0].Name, items[1].Name)
	}
}
