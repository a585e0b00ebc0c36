package demo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dataspeak/dataspeak/internal/storage"
)

func tinyDataset() Dataset {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return Dataset{
		Customers:  []Customer{{ID: 1, FirstName: "Ada", LastName: "Becker", Email: "ada@example.com", City: "Berlin", Country: "DE", Segment: "consumer", CreatedAt: at}},
		Products:   []Product{{ID: 1, SKU: "ELE-0001", Name: "Monitor Pro", Category: "electronics", UnitPrice: 199.5, CreatedAt: at}},
		Orders:     []Order{{ID: 1, CustomerID: 1, Status: "paid", Channel: "web", OrderedAt: at, TotalAmount: 399}},
		OrderItems: []OrderItem{{ID: 1, OrderID: 1, ProductID: 1, Quantity: 2, UnitPrice: 199.5}},
	}
}

func TestSeedPostgresInsertsInForeignKeyOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE customers, products, orders, order_items RESTART IDENTITY CASCADE`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, table := range Tables {
		mock.ExpectExec(`INSERT INTO ` + table + ` \(id, `).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SELECT setval\(pg_get_serial_sequence\('` + table + `', 'id'\)`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	seeder := &Seeder{DB: db}
	if err := seeder.SeedPostgres(context.Background(), tinyDataset(), true); err != nil {
		t.Fatalf("SeedPostgres() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSeedPostgresRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO customers`).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	seeder := &Seeder{DB: db}
	if err := seeder.SeedPostgres(context.Background(), tinyDataset(), false); err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertRowsBatchesPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO t (a, b) VALUES ($1, $2), ($3, $4)`).
		WithArgs(1, "x", 2, "y").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := insertRows(context.Background(), tx, "t", []string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}}); err != nil {
		t.Fatalf("insertRows() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUploadParquetWritesDatasetKeys(t *testing.T) {
	store := &recordingStore{objects: map[string][]byte{}}
	seeder := &Seeder{Store: store}

	tables, err := seeder.UploadParquet(context.Background(), tinyDataset())
	if err != nil {
		t.Fatalf("UploadParquet() error = %v", err)
	}
	if len(tables) != 4 || len(store.objects) != 4 {
		t.Fatalf("tables = %d objects = %d", len(tables), len(store.objects))
	}
	for _, name := range Tables {
		key, _ := storage.DatasetKey(name)
		if len(store.objects[key]) == 0 {
			t.Fatalf("missing object %s", key)
		}
	}
}

func TestUploadParquetRequiresStore(t *testing.T) {
	if _, err := (&Seeder{}).UploadParquet(context.Background(), tinyDataset()); err == nil {
		t.Fatal("expected error without store")
	}
}

type recordingStore struct {
	objects map[string][]byte
}

func (s *recordingStore) Publish(_ context.Context, key string, body []byte, contentType string) (storage.ObjectInfo, error) {
	if contentType != storage.ParquetContentType {
		return storage.ObjectInfo{}, fmt.Errorf("content type %q", contentType)
	}
	s.objects[key] = body
	return storage.ObjectInfo{Key: key, Size: int64(len(body))}, nil
}
