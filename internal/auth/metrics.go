package auth

import "github.com/prometheus/client_golang/prometheus"

var authFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "mock_exporter_auth_failures_total",
	Help: "Scrape requests rejected by authentication, by reason",
}, []string{"reason"})

func init() {
	prometheus.MustRegister(authFailuresTotal)
}
