package compression

import "github.com/prometheus/client_golang/prometheus"

func init() {
	prometheus.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "mock_exporter_compression_pool_gets_total",
			Help: "Pool.Get() calls for compression encoders",
		}, func() float64 { return float64(compressionPoolGets.Load()) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "mock_exporter_compression_pool_new_total",
			Help: "New compression encoders created (pool miss)",
		}, func() float64 { return float64(compressionPoolNews.Load()) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "mock_exporter_compression_bytes_in_total",
			Help: "Uncompressed bytes passed to Compress",
		}, func() float64 { return float64(compressionBytesIn.Load()) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "mock_exporter_compression_bytes_out_total",
			Help: "Compressed bytes produced by Compress",
		}, func() float64 { return float64(compressionBytesOut.Load()) }),
	)
}
