package exporter

import (
	"time"

	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/szibis/mock-exporter/internal/catalog"
	"github.com/szibis/mock-exporter/internal/generator"
)

// ScopeName identifies the instrumentation scope of pushed metrics.
const ScopeName = "github.com/szibis/mock-exporter"

// ToRequest converts generated series into one OTLP request. Counters become
// monotonic cumulative sums starting at start; all other kinds become gauges.
// Series of the same metric must be adjacent, as Generate returns them.
func ToRequest(series []generator.Series, resource map[string]string, start, now time.Time) *colmetricspb.ExportMetricsServiceRequest {
	startNano := uint64(start.UnixNano())
	nowNano := uint64(now.UnixNano())

	var metrics []*metricspb.Metric
	var cur *metricspb.Metric
	for i, s := range series {
		if i == 0 || s.Name != series[i-1].Name {
			cur = newMetric(s)
			metrics = append(metrics, cur)
		}
		dp := &metricspb.NumberDataPoint{
			Attributes:   attributes(s.Labels),
			TimeUnixNano: nowNano,
			Value:        &metricspb.NumberDataPoint_AsDouble{AsDouble: s.Value},
		}
		switch data := cur.Data.(type) {
		case *metricspb.Metric_Sum:
			dp.StartTimeUnixNano = startNano
			data.Sum.DataPoints = append(data.Sum.DataPoints, dp)
		case *metricspb.Metric_Gauge:
			data.Gauge.DataPoints = append(data.Gauge.DataPoints, dp)
		}
	}

	return &colmetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{{
			Resource: &resourcepb.Resource{Attributes: attributes(resource)},
			ScopeMetrics: []*metricspb.ScopeMetrics{{
				Scope:   &commonpb.InstrumentationScope{Name: ScopeName},
				Metrics: metrics,
			}},
		}},
	}
}

func newMetric(s generator.Series) *metricspb.Metric {
	m := &metricspb.Metric{Name: s.Name, Description: s.Help}
	if s.Kind == catalog.KindCounter {
		m.Data = &metricspb.Metric_Sum{Sum: &metricspb.Sum{
			AggregationTemporality: metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE,
			IsMonotonic:            true,
		}}
		return m
	}
	m.Data = &metricspb.Metric_Gauge{Gauge: &metricspb.Gauge{}}
	return m
}

// attributes converts a label map to OTLP attributes in sorted key order.
func attributes(labels map[string]string) []*commonpb.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	names := catalog.Labels(labels).Names()
	out := make([]*commonpb.KeyValue, 0, len(names))
	for _, k := range names {
		out = append(out, &commonpb.KeyValue{
			Key:   k,
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: labels[k]}},
		})
	}
	return out
}
