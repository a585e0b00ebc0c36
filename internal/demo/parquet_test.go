package demo

import (
	"bytes"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func TestParquetTablesRoundTrip(t *testing.T) {
	data, err := fixedGenerator(3).Generate(smallConfig())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tables, err := data.ParquetTables()
	if err != nil {
		t.Fatalf("ParquetTables() error = %v", err)
	}
	if len(tables) != len(Tables) {
		t.Fatalf("len(tables) = %d", len(tables))
	}
	if tables[2].Name != TableOrders || tables[2].Key != "datasets/orders.parquet" {
		t.Fatalf("orders table = %+v", tables[2])
	}

	reader := parquet.NewGenericReader[Order](bytes.NewReader(tables[2].Data))
	defer func() { _ = reader.Close() }()
	if reader.NumRows() != int64(len(data.Orders)) {
		t.Fatalf("NumRows() = %d, want %d", reader.NumRows(), len(data.Orders))
	}
	rows := make([]Order, 1)
	if _, err := reader.Read(rows); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rows[0].ID != data.Orders[0].ID || rows[0].Status != data.Orders[0].Status {
		t.Fatalf("first row = %+v, want %+v", rows[0], data.Orders[0])
	}
}

func TestEncodeParquetRejectsEmpty(t *testing.T) {
	if _, err := EncodeParquet([]Customer{}); err == nil {
		t.Fatal("expected error for empty rows")
	}
}

func TestDatasetsSetting(t *testing.T) {
	got := DatasetsSetting([]ParquetTable{
		{Name: "customers", Key: "datasets/customers.parquet"},
		{Name: "orders", Key: "datasets/orders.parquet"},
	})
	want := "customers=datasets/customers.parquet,orders=datasets/orders.parquet"
	if got != want {
		t.Fatalf("DatasetsSetting() = %q, want %q", got, want)
	}
}
