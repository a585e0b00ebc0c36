package demo

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/dataspeak/dataspeak/internal/storage"
)

type ParquetTable struct {
	Name     string
	Key      string
	Data     []byte
	RowCount int64
}

func EncodeParquet[T any](rows []T) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ParquetTables encodes every demo table, keyed by its dataset object key.
func (d Dataset) ParquetTables() ([]ParquetTable, error) {
	encoders := map[string]func() ([]byte, error){
		TableCustomers:  func() ([]byte, error) { return EncodeParquet(d.Customers) },
		TableProducts:   func() ([]byte, error) { return EncodeParquet(d.Products) },
		TableOrders:     func() ([]byte, error) { return EncodeParquet(d.Orders) },
		TableOrderItems: func() ([]byte, error) { return EncodeParquet(d.OrderItems) },
	}
	counts := d.RowCounts()

	out := make([]ParquetTable, 0, len(Tables))
	for _, name := range Tables {
		key, err := storage.DatasetKey(name)
		if err != nil {
			return nil, err
		}
		data, err := encoders[name]()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out = append(out, ParquetTable{Name: name, Key: key, Data: data, RowCount: int64(counts[name])})
	}
	return out, nil
}

// DatasetsSetting renders tables in the DATASPEAK_DUCKDB_DATASETS format.
func DatasetsSetting(tables []ParquetTable) string {
	parts := make([]string, 0, len(tables))
	for _, table := range tables {
		parts = append(parts, table.Name+"="+table.Key)
	}
	return strings.Join(parts, ",")
}
