// Package generator produces synthetic samples from catalog statistics.
// Counters advance monotonically from a seeded value; everything else is
// drawn around the observed mean and clamped to the observed range.
package generator

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/szibis/mock-exporter/internal/catalog"
	"github.com/szibis/mock-exporter/internal/counters"
	"github.com/szibis/mock-exporter/internal/textformat"
)

// NoMetricsMarker is the whole exposition when there is nothing to emit.
const NoMetricsMarker = "# No metrics found\n"

// Fallback counter increment range, used when the observed spread is zero.
const (
	minIncrement = 0.1
	maxIncrement = 1.0
)

// Series is one generated sample together with the metadata of its metric.
type Series struct {
	Name   string
	Help   string
	Type   string
	Kind   catalog.Kind
	Labels catalog.Labels
	Key    string
	Value  float64
}

// Generator draws values from rng and advances counters in store.
// It is not safe for concurrent use.
type Generator struct {
	store *counters.Store
	rng   *rand.Rand
}

// New creates a generator.
func New(store *counters.Store, rng *rand.Rand) *Generator {
	return &Generator{store: store, rng: rng}
}

// SeedCounters creates a store entry for every counter series in cat that
// does not have one yet, seeded uniformly within the metric's observed
// range. Existing entries keep their value. It returns the number created.
func (g *Generator) SeedCounters(cat catalog.Catalog) int {
	created := 0
	for _, name := range cat.Names() {
		m := cat[name]
		if !m.IsCounter() || !m.HasStats() {
			continue
		}
		for _, sg := range m.Series() {
			id := counters.SeriesID{Metric: name, LabelKey: sg.Key}
			if g.store.Has(id) {
				continue
			}
			if g.store.Seed(id, g.uniform(m.Stats.Min, m.Stats.Max)) {
				created++
			}
		}
	}
	return created
}

// Generate produces one value per distinct label key of every metric, in
// metric name order and, within a metric, in first-seen key order. Metrics
// without samples are skipped, as are counter series that were never
// seeded. The catalog is not modified.
func (g *Generator) Generate(cat catalog.Catalog) []Series {
	var out []Series
	for _, name := range cat.Names() {
		m := cat[name]
		if !m.HasStats() {
			continue
		}
		for _, sg := range m.Series() {
			v, ok := g.value(m, sg.Key)
			if !ok {
				continue
			}
			out = append(out, Series{
				Name:   name,
				Help:   m.Help,
				Type:   m.Type,
				Kind:   m.Kind,
				Labels: sg.Labels,
				Key:    sg.Key,
				Value:  v,
			})
			seriesGenerated.WithLabelValues(m.Kind.String()).Inc()
		}
	}
	return out
}

func (g *Generator) value(m *catalog.MetricDefinition, key string) (float64, bool) {
	st := m.Stats
	if m.IsCounter() {
		var inc float64
		if st.StdDev > 0 {
			inc = math.Abs(g.rng.NormFloat64() * st.StdDev)
		} else {
			inc = g.uniform(minIncrement, maxIncrement)
		}
		return g.store.Advance(counters.SeriesID{Metric: m.Name, LabelKey: key}, inc)
	}

	if st.StdDev > 0 {
		v := st.Mean + g.rng.NormFloat64()*st.StdDev
		return math.Max(st.Min, math.Min(v, st.Max)), true
	}
	return g.uniform(st.Min, st.Max), true
}

// uniform returns a value in [lo, hi].
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Render formats series as exposition text. HELP and TYPE lines precede the
// first sample of each metric when non-empty. With no series the output is
// NoMetricsMarker.
func Render(series []Series) string {
	if len(series) == 0 {
		return NoMetricsMarker
	}

	var sb strings.Builder
	prev := ""
	for i, s := range series {
		if i == 0 || s.Name != prev {
			if s.Help != "" {
				textformat.WriteHelp(&sb, s.Name, s.Help)
			}
			if s.Type != "" {
				textformat.WriteType(&sb, s.Name, s.Type)
			}
			prev = s.Name
		}
		textformat.WriteSample(&sb, s.Name, s.Labels, s.Value)
		sb.WriteByte('\n')
	}
	return sb.String()
}
