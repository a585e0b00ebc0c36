package chart

import "sort"

// Series returns every series name used by the chart, ordered by first
// appearance across data points and alphabetically within a point.
func (c *ChartConfig) Series() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, point := range c.Data {
		keys := make([]string, 0, len(point.Y.series))
		for name := range point.Y.series {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		for _, name := range keys {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Normalize gives every multi-series data point the same set of keys, filling
// absent series with zero so stacked and grouped charts line up.
func (c *ChartConfig) Normalize() {
	names := c.Series()
	if len(names) == 0 {
		return
	}
	for i := range c.Data {
		if c.Data[i].Y.series == nil {
			continue
		}
		for _, name := range names {
			if _, ok := c.Data[i].Y.series[name]; !ok {
				c.Data[i].Y.series[name] = 0
			}
		}
	}
}
