package counters

import "github.com/prometheus/client_golang/prometheus"

var counterEntries = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "mock_exporter_counter_series",
	Help: "Number of synthetic counter series with running state",
})

func init() {
	prometheus.MustRegister(counterEntries)
}
