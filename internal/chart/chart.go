package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidResponse = errors.New("invalid response")

type ResponseType string

const (
	ResponseChart    ResponseType = "chart"
	ResponseText     ResponseType = "text"
	ResponseMarkdown ResponseType = "markdown"
)

func (t *ResponseType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("response_type must be a string: %w", err)
	}
	*t = ResponseType(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
)

func (t *ChartType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("chart_type must be a string: %w", err)
	}
	*t = ChartType(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

func (t ChartType) valid() bool {
	switch t {
	case ChartBar, ChartLine, ChartPie, ChartScatter:
		return true
	default:
		return false
	}
}

// Response is the envelope returned for every answered question. Exactly one
// of Text or ChartConfig is meaningful, selected by ResponseType.
type Response struct {
	ResponseType ResponseType `json:"response_type"`
	Text         string       `json:"text"`
	ChartConfig  *ChartConfig `json:"chart_config"`
}

type ChartConfig struct {
	ChartType ChartType      `json:"chart_type"`
	Data      []DataPoint    `json:"data"`
	Title     string         `json:"title"`
	XLabel    string         `json:"x_label"`
	YLabel    string         `json:"y_label"`
	Config    map[string]any `json:"config,omitempty"`
}

type DataPoint struct {
	X XValue `json:"x"`
	Y YValue `json:"y"`
}

func NewChartResponse(cfg *ChartConfig) (Response, error) {
	resp := Response{ResponseType: ResponseChart, ChartConfig: cfg}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func NewTextResponse(text string) (Response, error) {
	resp := Response{ResponseType: ResponseText, Text: text}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func NewMarkdownResponse(text string) (Response, error) {
	resp := Response{ResponseType: ResponseMarkdown, Text: text}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Decode parses an envelope produced by the model and validates it.
func Decode(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (r Response) Validate() error {
	switch r.ResponseType {
	case ResponseChart:
		if r.ChartConfig == nil {
			return fmt.Errorf("%w: chart_config is required when response_type is chart", ErrInvalidResponse)
		}
		return r.ChartConfig.Validate()
	case ResponseText, ResponseMarkdown:
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("%w: text is required when response_type is %s", ErrInvalidResponse, r.ResponseType)
		}
		return nil
	case "":
		return fmt.Errorf("%w: response_type is required", ErrInvalidResponse)
	default:
		return fmt.Errorf("%w: unsupported response_type %q", ErrInvalidResponse, r.ResponseType)
	}
}

func (c *ChartConfig) Validate() error {
	if c.ChartType == "" {
		return fmt.Errorf("%w: chart_type is required", ErrInvalidResponse)
	}
	if !c.ChartType.valid() {
		return fmt.Errorf("%w: unsupported chart_type %q", ErrInvalidResponse, c.ChartType)
	}
	if len(c.Data) == 0 {
		return fmt.Errorf("%w: chart data needs at least one point", ErrInvalidResponse)
	}
	seriesPoints := 0
	for i, point := range c.Data {
		if point.X.IsZero() {
			return fmt.Errorf("%w: data[%d]: x is required", ErrInvalidResponse, i)
		}
		if point.Y.IsZero() {
			return fmt.Errorf("%w: data[%d]: y is required", ErrInvalidResponse, i)
		}
		if point.Y.IsSeries() {
			seriesPoints++
		}
	}
	if seriesPoints > 0 && seriesPoints != len(c.Data) {
		return fmt.Errorf("%w: data points mix single and multi-series y values", ErrInvalidResponse)
	}
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		ResponseType ResponseType `json:"response_type"`
		Text         *string      `json:"text"`
		ChartConfig  *ChartConfig `json:"chart_config"`
	}
	out := wire{ResponseType: r.ResponseType, ChartConfig: r.ChartConfig}
	if r.Text != "" {
		text := r.Text
		out.Text = &text
	}
	return json.Marshal(out)
}
