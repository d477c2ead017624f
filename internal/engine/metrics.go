package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	renderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mock_exporter_render_duration_seconds",
		Help:    "Time spent producing one exposition, including any refresh",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	renderedSeries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mock_exporter_rendered_series",
		Help: "Number of series in the most recent generation",
	})
)

func init() {
	prometheus.MustRegister(renderDuration, renderedSeries)
}
