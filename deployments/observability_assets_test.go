package deployments

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPrometheusRulesContainExpectedAlertsAndRecords(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "dataspeak_rules.yaml")

	requiredAlerts := []string{
		"DataSpeakAgentErrorRatioHigh",
		"DataSpeakAgentLatencyP95High",
		"DataSpeakWarehouseSlow",
		"DataSpeakHTTPErrorRateHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}

	requiredRecords := []string{
		"dataspeak:agent_error_ratio_15m",
		"dataspeak:agent_run_latency_seconds_p95",
		"dataspeak:tool_error_ratio_15m",
		"dataspeak:warehouse_query_latency_ms_p95",
		"dataspeak:http_error_rate_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("rules missing record %q", recordName)
		}
	}

	exportedMetrics := []string{
		"dataspeak_agent_runs_total",
		"dataspeak_agent_run_duration_seconds_bucket",
		"dataspeak_agent_tool_calls_total",
		"dataspeak_warehouse_query_duration_ms_bucket",
		"dataspeak_http_requests_total",
	}
	for _, metricName := range exportedMetrics {
		if !strings.Contains(text, metricName) {
			t.Fatalf("rules missing metric reference %q", metricName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "prometheus-scrape.example.yaml")

	requiredTokens := []string{
		"metrics_path: /api/metrics",
		"dataspeak_rules.yaml",
		"job_name: dataspeak-api",
	}
	for _, token := range requiredTokens {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func TestComposeDefinesLocalDependencies(t *testing.T) {
	text := readAsset(t, "docker-compose.yml")

	for _, service := range []string{"postgres:", "minio:", "prometheus:"} {
		if !strings.Contains(text, "  "+service) {
			t.Fatalf("compose file missing service %q", service)
		}
	}
	if !strings.Contains(text, "POSTGRES_DB: dataspeak") {
		t.Fatal("compose postgres must create the dataspeak database")
	}
}

func readAsset(t *testing.T, parts ...string) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	path := filepath.Join(append([]string{filepath.Dir(filename)}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}
