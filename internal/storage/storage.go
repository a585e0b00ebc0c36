// Package storage holds the object-store contract for parquet dataset
// exports: the seeder publishes them, the DuckDB warehouse reads them.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

const ParquetContentType = "application/vnd.apache.parquet"

type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

type DatasetReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type DatasetWriter interface {
	Publish(ctx context.Context, key string, body []byte, contentType string) (ObjectInfo, error)
}
