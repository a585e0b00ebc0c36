package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// XValue holds an axis value that is either a category label or a number.
type XValue struct {
	text   string
	number float64
	kind   xKind
}

type xKind uint8

const (
	xUnset xKind = iota
	xText
	xNumber
)

func StringX(value string) XValue {
	return XValue{text: value, kind: xText}
}

func NumberX(value float64) XValue {
	return XValue{number: value, kind: xNumber}
}

func (x XValue) IsZero() bool {
	return x.kind == xUnset
}

func (x XValue) IsNumber() bool {
	return x.kind == xNumber
}

func (x XValue) Number() (float64, bool) {
	return x.number, x.kind == xNumber
}

func (x XValue) String() string {
	switch x.kind {
	case xText:
		return x.text
	case xNumber:
		return strconv.FormatFloat(x.number, 'f', -1, 64)
	default:
		return ""
	}
}

func (x XValue) MarshalJSON() ([]byte, error) {
	switch x.kind {
	case xText:
		return json.Marshal(x.text)
	case xNumber:
		return json.Marshal(x.number)
	default:
		return []byte("null"), nil
	}
}

func (x *XValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*x = XValue{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch typed := raw.(type) {
	case string:
		*x = StringX(typed)
	case float64:
		*x = NumberX(typed)
	default:
		return fmt.Errorf("x must be a string or number, got %s", string(data))
	}
	return nil
}

// YValue is either a single measurement or a set of named series values.
type YValue struct {
	single *float64
	series map[string]float64
}

func Single(value float64) YValue {
	return YValue{single: &value}
}

func Series(values map[string]float64) YValue {
	copied := make(map[string]float64, len(values))
	for name, value := range values {
		copied[name] = value
	}
	return YValue{series: copied}
}

func (y YValue) IsZero() bool {
	return y.single == nil && y.series == nil
}

func (y YValue) IsSeries() bool {
	return y.series != nil
}

func (y YValue) Value() (float64, bool) {
	if y.single == nil {
		return 0, false
	}
	return *y.single, true
}

// SeriesValues returns a copy of the named values; nil for single values.
func (y YValue) SeriesValues() map[string]float64 {
	if y.series == nil {
		return nil
	}
	copied := make(map[string]float64, len(y.series))
	for name, value := range y.series {
		copied[name] = value
	}
	return copied
}

func (y YValue) MarshalJSON() ([]byte, error) {
	switch {
	case y.series != nil:
		return json.Marshal(y.series)
	case y.single != nil:
		return json.Marshal(*y.single)
	default:
		return []byte("null"), nil
	}
}

func (y *YValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = YValue{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch typed := raw.(type) {
	case float64:
		*y = Single(typed)
	case string:
		value, err := parseNumeric(typed)
		if err != nil {
			return fmt.Errorf("y: %w", err)
		}
		*y = Single(value)
	case map[string]any:
		values := make(map[string]float64, len(typed))
		for name, item := range typed {
			switch v := item.(type) {
			case float64:
				values[name] = v
			case string:
				parsed, err := parseNumeric(v)
				if err != nil {
					return fmt.Errorf("y[%q]: %w", name, err)
				}
				values[name] = parsed
			case nil:
				values[name] = 0
			default:
				return fmt.Errorf("y[%q] must be numeric", name)
			}
		}
		*y = YValue{series: values}
	default:
		return fmt.Errorf("y must be a number or an object of numbers, got %s", string(data))
	}
	return nil
}

func parseNumeric(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return value, nil
}
