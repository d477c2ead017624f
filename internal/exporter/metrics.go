package exporter

import "github.com/prometheus/client_golang/prometheus"

var (
	otlpExportBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mock_exporter_otlp_export_bytes_total",
		Help: "Total bytes pushed to the OTLP receiver",
	}, []string{"compression"})

	otlpExportRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mock_exporter_otlp_export_requests_total",
		Help: "Total number of OTLP export requests",
	}, []string{"protocol"})

	otlpExportDatapointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_otlp_export_datapoints_total",
		Help: "Total number of datapoints pushed to the OTLP receiver",
	})

	remoteWriteRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_remote_write_requests_total",
		Help: "Total number of remote write requests",
	})

	remoteWriteBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_remote_write_bytes_total",
		Help: "Total snappy-compressed bytes sent via remote write",
	})

	remoteWriteSamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_remote_write_samples_total",
		Help: "Total number of samples accepted by the remote write receiver",
	})

	exportErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mock_exporter_export_errors_total",
		Help: "Total number of push errors by error type",
	}, []string{"error_type"})

	pushDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mock_exporter_push_duration_seconds",
		Help:    "Time spent generating and pushing one batch, by sink",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(
		otlpExportBytesTotal,
		otlpExportRequestsTotal,
		otlpExportDatapointsTotal,
		remoteWriteRequestsTotal,
		remoteWriteBytesTotal,
		remoteWriteSamplesTotal,
		exportErrorsTotal,
		pushDuration,
	)
}
