package storage

import (
	"fmt"
	"path"
	"regexp"
)

const DatasetPrefix = "datasets"

var datasetNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// DatasetKey returns the object key holding the parquet export of a table.
func DatasetKey(tableName string) (string, error) {
	if err := ValidateDatasetName(tableName); err != nil {
		return "", err
	}
	return path.Join(DatasetPrefix, tableName+".parquet"), nil
}

func ValidateDatasetName(tableName string) error {
	if !datasetNamePattern.MatchString(tableName) {
		return fmt.Errorf("invalid dataset name: %q", tableName)
	}
	return nil
}
