// Package counters holds run statistics. A Counters value is owned by exactly
// one goroutine at a time: every worker accumulates into its own instance and
// the driver merges them after the job returns.
package counters

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Counters is a set of named integer counters plus keyed histograms.
type Counters struct {
	values     map[string]int64
	histograms map[string]map[string]int64
}

// New returns an empty accumulator.
func New() *Counters {
	return &Counters{
		values:     make(map[string]int64),
		histograms: make(map[string]map[string]int64),
	}
}

// Inc adds one to name.
func (c *Counters) Inc(name string) { c.Add(name, 1) }

// Add adds n to name.
func (c *Counters) Add(name string, n int64) {
	if c == nil {
		return
	}
	c.values[name] += n
}

// Histogram adds n to bucket key of histogram name.
func (c *Counters) Histogram(name, key string, n int64) {
	if c == nil {
		return
	}
	h, ok := c.histograms[name]
	if !ok {
		h = make(map[string]int64)
		c.histograms[name] = h
	}
	h[key] += n
}

// Get returns the current value of name.
func (c *Counters) Get(name string) int64 {
	if c == nil {
		return 0
	}
	return c.values[name]
}

// Bucket returns one histogram bucket.
func (c *Counters) Bucket(name, key string) int64 {
	if c == nil {
		return 0
	}
	return c.histograms[name][key]
}

// Merge folds other into c. other is left untouched.
func (c *Counters) Merge(other *Counters) {
	if c == nil || other == nil {
		return
	}
	for k, v := range other.values {
		c.values[k] += v
	}
	for name, h := range other.histograms {
		for k, v := range h {
			c.Histogram(name, k, v)
		}
	}
}

// Take returns the accumulated counters and resets c.
func (c *Counters) Take() *Counters {
	out := &Counters{values: c.values, histograms: c.histograms}
	c.values = make(map[string]int64)
	c.histograms = make(map[string]map[string]int64)
	return out
}

// Names returns counter names in sorted order.
func (c *Counters) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.values))
}

// String renders all counters and histograms, sorted by name.
func (c *Counters) String() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("counters:\n")
	for _, name := range c.Names() {
		fmt.Fprintf(&sb, "  %-36s %d\n", name, c.values[name])
	}
	for _, name := range slices.Sorted(maps.Keys(c.histograms)) {
		fmt.Fprintf(&sb, "  %s:\n", name)
		h := c.histograms[name]
		for _, k := range slices.Sorted(maps.Keys(h)) {
			fmt.Fprintf(&sb, "    %-34s %d\n", k, h[k])
		}
	}
	return sb.String()
}
