package scanner

import "github.com/prometheus/client_golang/prometheus"

var (
	scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mock_exporter_scans_total",
		Help: "Total number of corpus refresh attempts by result",
	}, []string{"result"})

	scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mock_exporter_scan_duration_seconds",
		Help:    "Time spent listing, parsing and merging the fixture corpus",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	filesParsedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_files_parsed_total",
		Help: "Total number of fixture files parsed successfully",
	})

	fileErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_file_errors_total",
		Help: "Total number of fixture files skipped because they could not be read",
	})

	malformedLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_malformed_lines_total",
		Help: "Total number of fixture lines skipped because they did not match the grammar",
	})

	catalogMetrics = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mock_exporter_catalog_metrics",
		Help: "Number of metric names in the most recent catalog",
	})

	catalogSeries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mock_exporter_catalog_series",
		Help: "Number of distinct series (name and label set) in the most recent catalog",
	})

	seriesSeenEstimate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mock_exporter_series_seen_estimate",
		Help: "HyperLogLog estimate of distinct series observed since start",
	})

	lastScanTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mock_exporter_last_scan_timestamp_seconds",
		Help: "Unix time of the most recent completed corpus scan",
	})
)

func init() {
	prometheus.MustRegister(
		scansTotal,
		scanDuration,
		filesParsedTotal,
		fileErrorsTotal,
		malformedLinesTotal,
		catalogMetrics,
		catalogSeries,
		seriesSeenEstimate,
		lastScanTimestamp,
	)

	scansTotal.WithLabelValues("success").Add(0)
	scansTotal.WithLabelValues("throttled").Add(0)
	scansTotal.WithLabelValues("error").Add(0)
}
