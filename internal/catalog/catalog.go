// Package catalog holds the in-memory model of metrics observed in the
// fixture corpus: samples, per-metric summary statistics and the catalog
// that maps metric names to their definitions.
package catalog

import (
	"math"
	"sort"
	"strings"
)

// Kind is the closed set of metric kinds the generator distinguishes.
type Kind int

const (
	// KindUnknown is used when no TYPE line was seen or the type is not recognized.
	KindUnknown Kind = iota
	// KindCounter marks monotonically increasing series.
	KindCounter
	// KindGauge marks series that move up and down within a range.
	KindGauge
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// ParseKind classifies a declared TYPE string. Comparison is case-insensitive.
func ParseKind(declared string) Kind {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "counter":
		return KindCounter
	case "gauge":
		return KindGauge
	default:
		return KindUnknown
	}
}

// Labels is a label set. Names are unique within a set.
type Labels map[string]string

// Key returns the canonical identity of the label set: names sorted
// lexicographically, rendered as name=value and joined with commas.
// An empty set yields the empty key.
func (l Labels) Key() string {
	if len(l) == 0 {
		return ""
	}
	names := l.Names()
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(l[name])
	}
	return sb.String()
}

// Names returns the label names in sorted order.
func (l Labels) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sample is a single observed value with its labels.
type Sample struct {
	Value  float64
	Labels Labels
}

// Statistics summarizes the values of a metric's samples.
type Statistics struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// MetricDefinition describes one metric name across the whole corpus.
type MetricDefinition struct {
	Name     string
	Type     string // declared TYPE, verbatim
	Help     string
	Kind     Kind
	Samples  []Sample
	Stats    Statistics
	hasStats bool
}

// NewMetricDefinition creates an empty definition for name.
func NewMetricDefinition(name string) *MetricDefinition {
	return &MetricDefinition{Name: name}
}

// SetType records the declared type and reclassifies the metric.
func (m *MetricDefinition) SetType(declared string) {
	m.Type = declared
	m.Kind = ParseKind(declared)
}

// IsCounter reports whether the metric was declared as a counter.
func (m *MetricDefinition) IsCounter() bool {
	return m.Kind == KindCounter
}

// HasStats reports whether min, max and mean are defined, i.e. the metric
// had at least one sample when statistics were last recomputed.
func (m *MetricDefinition) HasStats() bool {
	return m.hasStats
}

// RecomputeStatistics derives min, max, mean and sample standard deviation
// from the current sample collection. Callers must invoke it after any
// change to Samples; nothing recomputes implicitly.
func (m *MetricDefinition) RecomputeStatistics() {
	m.Stats = Statistics{Count: len(m.Samples)}
	m.hasStats = len(m.Samples) > 0
	if !m.hasStats {
		return
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	var sum float64
	for _, s := range m.Samples {
		minV = math.Min(minV, s.Value)
		maxV = math.Max(maxV, s.Value)
		sum += s.Value
	}
	n := float64(len(m.Samples))
	mean := sum / n

	var stdDev float64
	if len(m.Samples) > 1 {
		var sq float64
		for _, s := range m.Samples {
			d := s.Value - mean
			sq += d * d
		}
		stdDev = math.Sqrt(sq / (n - 1))
	}

	m.Stats.Min = minV
	m.Stats.Max = maxV
	m.Stats.Mean = mean
	m.Stats.StdDev = stdDev
}

// SeriesGroup is the set of samples sharing one label key.
type SeriesGroup struct {
	Key    string
	Labels Labels
	Values []float64
}

// Series groups samples by label key. Groups are returned in the order in
// which their key was first seen; the labels of the first sample represent
// the group.
func (m *MetricDefinition) Series() []SeriesGroup {
	index := make(map[string]int, len(m.Samples))
	groups := make([]SeriesGroup, 0)
	for _, s := range m.Samples {
		key := s.Labels.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, SeriesGroup{Key: key, Labels: s.Labels})
		}
		groups[i].Values = append(groups[i].Values, s.Value)
	}
	return groups
}

// Catalog maps metric names to definitions.
type Catalog map[string]*MetricDefinition

// Names returns metric names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge folds other into c. Samples are appended without deduplication;
// non-empty help and type from other overwrite what c holds, so the last
// merged source wins. Statistics of touched definitions are recomputed.
func (c Catalog) Merge(other Catalog) {
	for _, name := range other.Names() {
		src := other[name]
		dst, ok := c[name]
		if !ok {
			dst = NewMetricDefinition(name)
			c[name] = dst
		}
		if src.Help != "" {
			dst.Help = src.Help
		}
		if src.Type != "" {
			dst.SetType(src.Type)
		}
		dst.Samples = append(dst.Samples, src.Samples...)
		dst.RecomputeStatistics()
	}
}

// SeriesCount returns the number of distinct (name, label key) series.
func (c Catalog) SeriesCount() int {
	total := 0
	for _, m := range c {
		total += len(m.Series())
	}
	return total
}
