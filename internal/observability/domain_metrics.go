package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	agentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataspeak_agent_runs_total",
			Help: "Total number of agent runs by outcome and response type.",
		},
		[]string{"outcome", "response_type"},
	)
	agentRunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dataspeak_agent_run_duration_seconds",
			Help:    "End-to-end agent run latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
	agentToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataspeak_agent_tool_calls_total",
			Help: "Total number of agent tool calls by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	warehouseQueryDurationMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataspeak_warehouse_query_duration_ms",
			Help:    "Warehouse query latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		},
		[]string{"dialect"},
	)
	authRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataspeak_auth_rejections_total",
			Help: "Requests rejected by API key authentication, by reason.",
		},
		[]string{"reason"},
	)
	warehouseRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dataspeak_warehouse_rows_returned",
			Help:    "Rows returned to the agent per warehouse query.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 500},
		},
	)
)

func init() {
	prometheus.MustRegister(
		agentRunsTotal,
		agentRunDurationSeconds,
		agentToolCallsTotal,
		warehouseQueryDurationMs,
		warehouseRowsReturned,
		authRejectionsTotal,
	)
}

// ObserveAgentRun records a finished run. responseType is empty on failure.
func ObserveAgentRun(outcome, responseType string, elapsed time.Duration) {
	if responseType == "" {
		responseType = "none"
	}
	agentRunsTotal.WithLabelValues(outcome, responseType).Inc()
	agentRunDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementToolCall(tool, outcome string) {
	agentToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func ObserveWarehouseQuery(dialect string, rows int, elapsed time.Duration) {
	warehouseQueryDurationMs.WithLabelValues(dialect).Observe(float64(elapsed.Milliseconds()))
	if rows >= 0 {
		warehouseRowsReturned.Observe(float64(rows))
	}
}

func IncrementAuthRejection(reason string) {
	authRejectionsTotal.WithLabelValues(reason).Inc()
}
