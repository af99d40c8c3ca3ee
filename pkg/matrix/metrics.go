// Package matrix assembles many-to-many travel cost tables on top of the
// RPHAST search: it snaps locations, runs one search per request, unpacks
// shortcuts into distance and duration, and lays the results out row-major.
package matrix

import (
	"fmt"
	"strings"
)

// Metrics is a bitmask of the tables a request asks for.
type Metrics uint8

const (
	Duration Metrics = 1 << iota
	Distance
	Weight

	AllMetrics = Duration | Distance | Weight
)

var metricNames = []struct {
	m    Metrics
	name string
}{
	{Duration, "duration"},
	{Distance, "distance"},
	{Weight, "weight"},
}

// Has reports whether every bit of k is set in m.
func (m Metrics) Has(k Metrics) bool { return k != 0 && m&k == k }

// Valid reports whether m selects at least one known metric and nothing else.
func (m Metrics) Valid() bool { return m != 0 && m&^AllMetrics == 0 }

// Kinds returns the single-bit metrics set in m, in bit order.
func (m Metrics) Kinds() []Metrics {
	var out []Metrics
	for _, n := range metricNames {
		if m.Has(n.m) {
			out = append(out, n.m)
		}
	}
	return out
}

func (m Metrics) String() string {
	var parts []string
	for _, n := range metricNames {
		if m.Has(n.m) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseMetrics builds a mask from metric names. Names are case-insensitive.
func ParseMetrics(names []string) (Metrics, error) {
	var m Metrics
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for _, n := range metricNames {
			if n.name == name {
				m |= n.m
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown metric %q", raw)
		}
	}
	return m, nil
}
