// Package prw encodes synthetic series as Prometheus Remote Write 1.0
// requests, including metric metadata.
package prw

import (
	"sort"
)

// WriteRequest is a remote write request.
type WriteRequest struct {
	Timeseries []TimeSeries
	Metadata   []MetricMetadata
}

// TimeSeries is one labelled series. Labels include __name__ and are
// sorted by name.
type TimeSeries struct {
	Labels  []Label
	Samples []Sample
}

// Label is a name/value pair.
type Label struct {
	Name  string
	Value string
}

// Sample is a value at a Unix millisecond timestamp.
type Sample struct {
	Value     float64
	Timestamp int64
}

// MetricMetadata describes a metric family.
type MetricMetadata struct {
	Type             MetricType
	MetricFamilyName string
	Help             string
	Unit             string
}

// MetricType is the remote write metadata type enum.
type MetricType int32

const (
	MetricTypeUnknown MetricType = 0
	MetricTypeCounter MetricType = 1
	MetricTypeGauge   MetricType = 2
)

// String returns the exposition name of the type.
func (t MetricType) String() string {
	switch t {
	case MetricTypeCounter:
		return "counter"
	case MetricTypeGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// MetricName returns the __name__ label value.
func (ts *TimeSeries) MetricName() string {
	for _, l := range ts.Labels {
		if l.Name == "__name__" {
			return l.Value
		}
	}
	return ""
}

// SortLabels orders labels by name, as receivers require.
func (ts *TimeSeries) SortLabels() {
	sort.Slice(ts.Labels, func(i, j int) bool {
		return ts.Labels[i].Name < ts.Labels[j].Name
	})
}

// TotalSamples returns the number of samples in the request.
func (req *WriteRequest) TotalSamples() int {
	n := 0
	for i := range req.Timeseries {
		n += len(req.Timeseries[i].Samples)
	}
	return n
}
