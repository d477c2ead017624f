package generator

import "github.com/prometheus/client_golang/prometheus"

var seriesGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "mock_exporter_series_generated_total",
	Help: "Total number of synthetic samples generated by metric kind",
}, []string{"kind"})

func init() {
	prometheus.MustRegister(seriesGenerated)
}
