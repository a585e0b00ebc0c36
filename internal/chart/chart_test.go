package chart

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewChartResponseRequiresConfig(t *testing.T) {
	_, err := NewChartResponse(nil)
	if err == nil {
		t.Fatal("expected error for chart response without chart_config")
	}
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestNewTextResponseRequiresText(t *testing.T) {
	if _, err := NewTextResponse(""); err == nil {
		t.Fatal("expected error for empty text")
	}
	if _, err := NewTextResponse("   "); err == nil {
		t.Fatal("expected error for blank text")
	}
	resp, err := NewTextResponse("There are 42 orders.")
	if err != nil {
		t.Fatalf("NewTextResponse() error = %v", err)
	}
	if resp.ResponseType != ResponseText {
		t.Fatalf("ResponseType = %q", resp.ResponseType)
	}
}

func TestNewMarkdownResponseRequiresText(t *testing.T) {
	if _, err := NewMarkdownResponse(""); err == nil {
		t.Fatal("expected error for empty markdown")
	}
}

func TestDecodeRejectsChartWithoutConfig(t *testing.T) {
	_, err := Decode([]byte(`{"response_type":"chart","text":null,"chart_config":null}`))
	if err == nil || !strings.Contains(err.Error(), "chart_config is required") {
		t.Fatalf("Decode() error = %v", err)
	}
}

func TestChartRequiresAtLeastOnePoint(t *testing.T) {
	for _, raw := range []string{
		`{"response_type":"chart","chart_config":{"chart_type":"bar","data":[]}}`,
		`{"response_type":"chart","chart_config":{"chart_type":"bar"}}`,
	} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("Decode(%s) error = %v, want ErrInvalidResponse", raw, err)
		}
	}
	if _, err := NewChartResponse(&ChartConfig{ChartType: ChartBar, Data: []DataPoint{}}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("NewChartResponse() error = %v, want ErrInvalidResponse", err)
	}
}

func TestDecodeRejectsTextWithoutText(t *testing.T) {
	_, err := Decode([]byte(`{"response_type":"text"}`))
	if err == nil || !strings.Contains(err.Error(), "text is required") {
		t.Fatalf("Decode() error = %v", err)
	}
}

func TestDecodeRejectsUnknownTypes(t *testing.T) {
	cases := []string{
		`{"response_type":"table","text":"x"}`,
		`{"text":"x"}`,
		`{"response_type":"chart","chart_config":{"chart_type":"radar","data":[{"x":"a","y":1}]}}`,
		`{"response_type":"chart","chart_config":{"chart_type":"bar","data":[{"x":"a"}]}}`,
	}
	for _, raw := range cases {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("Decode(%s) error = %v, want ErrInvalidResponse", raw, err)
		}
	}
}

func TestDecodeMultiSeriesChart(t *testing.T) {
	raw := `{
		"response_type": "chart",
		"chart_config": {
			"chart_type": "Line",
			"title": "Orders per customer",
			"x_label": "Day",
			"y_label": "Orders",
			"data": [
				{"x": "Mar 1, 2024", "y": {"Alice S.": 100, "Bob T.": 150}},
				{"x": "Mar 2, 2024", "y": {"Alice S.": 120}}
			]
		}
	}`
	resp, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	cfg := resp.ChartConfig
	if cfg.ChartType != ChartLine {
		t.Fatalf("ChartType = %q", cfg.ChartType)
	}
	if got := cfg.Series(); len(got) != 2 || got[0] != "Alice S." || got[1] != "Bob T." {
		t.Fatalf("Series() = %#v", got)
	}

	cfg.Normalize()
	values := cfg.Data[1].Y.SeriesValues()
	if value, ok := values["Bob T."]; !ok || value != 0 {
		t.Fatalf("normalized values = %#v", values)
	}
}

func TestDecodeRejectsMixedSeries(t *testing.T) {
	raw := `{"response_type":"chart","chart_config":{"chart_type":"bar","data":[{"x":"a","y":1},{"x":"b","y":{"s":2}}]}}`
	if _, err := Decode([]byte(raw)); err == nil {
		t.Fatal("expected error for mixed single and series values")
	}
}

func TestResponseJSONShape(t *testing.T) {
	resp, err := NewChartResponse(&ChartConfig{
		ChartType: ChartBar,
		Title:     "Revenue",
		Data: []DataPoint{
			{X: NumberX(2023), Y: Single(10.5)},
			{X: StringX("2024"), Y: Single(12)},
		},
	})
	if err != nil {
		t.Fatalf("NewChartResponse() error = %v", err)
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(encoded, &body); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if body["text"] != nil {
		t.Fatalf("text = %#v, want null", body["text"])
	}
	cfg := body["chart_config"].(map[string]any)
	for _, key := range []string{"title", "x_label", "y_label"} {
		if _, ok := cfg[key].(string); !ok {
			t.Fatalf("chart_config[%q] = %#v, want string", key, cfg[key])
		}
	}
	if cfg["x_label"] != "" {
		t.Fatalf("x_label = %#v, want empty string", cfg["x_label"])
	}
	data := cfg["data"].([]any)
	first := data[0].(map[string]any)
	if first["x"] != float64(2023) || first["y"] != 10.5 {
		t.Fatalf("first point = %#v", first)
	}
	if second := data[1].(map[string]any); second["x"] != "2024" {
		t.Fatalf("second point = %#v", second)
	}
}

func TestYValueAcceptsNumericStrings(t *testing.T) {
	var y YValue
	if err := json.Unmarshal([]byte(`"42.5"`), &y); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if value, ok := y.Value(); !ok || value != 42.5 {
		t.Fatalf("Value() = %v, %v", value, ok)
	}
	if err := json.Unmarshal([]byte(`"1,000"`), &y); err == nil {
		t.Fatal("expected error for formatted number string")
	}
}
