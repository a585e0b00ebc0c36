package dataspeakctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dataspeak/dataspeak/internal/chart"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("dataspeakctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:4000"), "DataSpeak API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 3*time.Minute), "HTTP timeout (e.g. 30s)")
	raw := fs.Bool("raw", false, "print the JSON response of ask instead of a summary")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	method := ""
	path := ""
	var body []byte
	switch command {
	case "health":
		method, path = http.MethodGet, "/api/health"
	case "ready":
		method, path = http.MethodGet, "/api/ready"
	case "schema":
		method, path = http.MethodGet, "/api/schema"
	case "ask":
		question := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if question == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			writeUsage(stderr)
			return 2
		}
		method, path = http.MethodPost, "/api/query"
		body, _ = json.Marshal(map[string]string{"query": question})
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if command == "ask" && !*raw {
		response, err := chart.Decode(responseBody)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "unexpected response: %v\n", err)
			return 1
		}
		writeSummary(stdout, response)
		return 0
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

// writeSummary prints text answers as is and charts as a table of points.
func writeSummary(w io.Writer, response chart.Response) {
	if response.ResponseType != chart.ResponseChart {
		_, _ = fmt.Fprintln(w, response.Text)
		return
	}

	cfg := response.ChartConfig
	title := cfg.Title
	if title == "" {
		title = "(untitled)"
	}
	_, _ = fmt.Fprintf(w, "%s chart: %s\n", cfg.ChartType, title)
	if cfg.XLabel != "" || cfg.YLabel != "" {
		_, _ = fmt.Fprintf(w, "x: %s  y: %s\n", cfg.XLabel, cfg.YLabel)
	}
	_, _ = fmt.Fprintf(w, "%d point(s)\n", len(cfg.Data))
	if len(cfg.Data) == 0 {
		return
	}

	series := cfg.Series()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{firstNonEmpty(cfg.XLabel, "x")}
	if len(series) == 0 {
		header = append(header, firstNonEmpty(cfg.YLabel, "y"))
	} else {
		header = append(header, series...)
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, point := range cfg.Data {
		row := []string{point.X.String()}
		if value, ok := point.Y.Value(); ok {
			row = append(row, formatNumber(value))
		} else {
			values := point.Y.SeriesValues()
			for _, name := range series {
				row = append(row, formatNumber(values[name]))
			}
		}
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: dataspeakctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health             GET /api/health")
	_, _ = fmt.Fprintln(w, "  ready              GET /api/ready")
	_, _ = fmt.Fprintln(w, "  schema             GET /api/schema")
	_, _ = fmt.Fprintln(w, "  ask <question...>  POST /api/query")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

// OptionsFromEnv reads DATASPEAK_API_URL, DATASPEAK_API_KEY and
// DATASPEAK_CLI_TIMEOUT. Flags passed to Run still win.
func OptionsFromEnv(lookup func(string) (string, bool)) (Options, error) {
	get := func(key string) string {
		value, _ := lookup(key)
		return strings.TrimSpace(value)
	}
	options := Options{
		BaseURL: get("DATASPEAK_API_URL"),
		APIKey:  get("DATASPEAK_API_KEY"),
	}
	if raw := get("DATASPEAK_CLI_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return options, fmt.Errorf("invalid DATASPEAK_CLI_TIMEOUT %q", raw)
		}
		options.Timeout = timeout
	}
	return options, nil
}
