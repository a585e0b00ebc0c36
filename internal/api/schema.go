package api

import (
	"net/http"

	"github.com/dataspeak/dataspeak/internal/warehouse"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "warehouse is not configured", false, nil)
		return
	}

	tables, err := deps.Schema.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to list warehouse tables", true, map[string]any{"details": err.Error()})
		return
	}

	described := make([]warehouse.Table, 0, len(tables))
	for _, table := range tables {
		full, err := deps.Schema.DescribeTable(r.Context(), table.Schema+"."+table.Name)
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to describe warehouse table", true, map[string]any{
				"table":   table.Name,
				"details": err.Error(),
			})
			return
		}
		full.Kind = table.Kind
		described = append(described, full)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dialect": deps.Schema.Dialect(),
		"tables":  described,
	})
}
