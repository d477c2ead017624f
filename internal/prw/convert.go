package prw

import (
	"time"

	"github.com/szibis/mock-exporter/internal/catalog"
	"github.com/szibis/mock-exporter/internal/generator"
)

// FromSeries builds a write request with one sample per series at now.
// External labels are added to every series unless the series already
// carries a label of the same name. Metadata is emitted once per metric in
// first-seen order.
func FromSeries(series []generator.Series, external map[string]string, now time.Time) *WriteRequest {
	ts := now.UnixMilli()
	req := &WriteRequest{Timeseries: make([]TimeSeries, 0, len(series))}
	seen := make(map[string]bool)

	for _, s := range series {
		labels := make([]Label, 0, len(s.Labels)+len(external)+1)
		labels = append(labels, Label{Name: "__name__", Value: s.Name})
		for name, value := range s.Labels {
			labels = append(labels, Label{Name: name, Value: value})
		}
		for name, value := range external {
			if _, ok := s.Labels[name]; ok || name == "__name__" {
				continue
			}
			labels = append(labels, Label{Name: name, Value: value})
		}
		out := TimeSeries{Labels: labels, Samples: []Sample{{Value: s.Value, Timestamp: ts}}}
		out.SortLabels()
		req.Timeseries = append(req.Timeseries, out)

		if !seen[s.Name] {
			seen[s.Name] = true
			req.Metadata = append(req.Metadata, MetricMetadata{
				Type:             metricType(s.Kind),
				MetricFamilyName: s.Name,
				Help:             s.Help,
			})
		}
	}
	return req
}

func metricType(k catalog.Kind) MetricType {
	switch k {
	case catalog.KindCounter:
		return MetricTypeCounter
	case catalog.KindGauge:
		return MetricTypeGauge
	default:
		return MetricTypeUnknown
	}
}
