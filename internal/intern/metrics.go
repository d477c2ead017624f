package intern

import "github.com/prometheus/client_golang/prometheus"

func init() {
	for name, p := range pools {
		pool := p
		labels := prometheus.Labels{"pool": name}
		prometheus.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name:        "mock_exporter_intern_hits_total",
				Help:        "Intern pool cache hits",
				ConstLabels: labels,
			}, func() float64 { h, _ := pool.Stats(); return float64(h) }),

			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name:        "mock_exporter_intern_misses_total",
				Help:        "Intern pool cache misses",
				ConstLabels: labels,
			}, func() float64 { _, m := pool.Stats(); return float64(m) }),

			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "mock_exporter_intern_pool_size",
				Help:        "Number of interned strings in pool",
				ConstLabels: labels,
			}, func() float64 { return float64(pool.Size()) }),
		)
	}
}
