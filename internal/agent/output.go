package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dataspeak/dataspeak/internal/chart"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// parseAnswer turns the final assistant message into a response envelope.
// Prose without a JSON object is passed through as markdown.
func parseAnswer(content string) (chart.Response, error) {
	text := stripCodeFence(content)
	if text == "" {
		return chart.Response{}, fmt.Errorf("model returned an empty answer")
	}
	if !strings.HasPrefix(text, "{") {
		match := fencedJSONPattern.FindStringSubmatch(text)
		if match == nil {
			return chart.NewMarkdownResponse(text)
		}
		text = match[1]
	}

	response, err := chart.Decode([]byte(text))
	if err != nil {
		return chart.Response{}, err
	}
	if response.ChartConfig != nil {
		if response.ResponseType == chart.ResponseChart {
			response.ChartConfig.Normalize()
		} else {
			response.ChartConfig = nil
		}
	}
	return response, nil
}

func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}
	trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 && !strings.ContainsAny(trimmed[:newline], "{[") {
		// drop the info string, e.g. ```json
		trimmed = trimmed[newline+1:]
	}
	return strings.TrimSpace(trimmed)
}
