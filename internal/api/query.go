package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dataspeak/dataspeak/internal/agent"
)

const maxQueryBodyBytes = 64 << 10

type queryRequest struct {
	Query string `json:"query"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "query agent is not configured", false, nil)
		return
	}

	var req queryRequest
	// Clients may send extra fields such as a session id; they are ignored.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	ctx := r.Context()
	if deps.AgentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.AgentTimeout)
		defer cancel()
	}

	result, err := deps.Agent.Run(ctx, agent.Request{Query: req.Query})
	if err != nil {
		retryable := errors.Is(err, context.DeadlineExceeded)
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", err.Error(), retryable, nil)
		return
	}

	if result.Model != "" {
		w.Header().Set("X-Agent-Model", result.Model)
	}
	w.Header().Set("X-Agent-Steps", strconv.Itoa(result.Steps))
	writeJSON(w, http.StatusOK, result.Response)
}
