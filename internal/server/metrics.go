package server

import "github.com/prometheus/client_golang/prometheus"

var (
	scrapesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mock_exporter_scrapes_total",
		Help: "Total number of /metrics requests served by content encoding",
	}, []string{"encoding"})

	scrapeBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mock_exporter_scrape_response_bytes",
		Help:    "Size of /metrics response bodies after compression",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"encoding"})

	scrapeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mock_exporter_scrape_duration_seconds",
		Help:    "Time spent serving /metrics requests",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(scrapesTotal, scrapeBytes, scrapeDuration)
}
