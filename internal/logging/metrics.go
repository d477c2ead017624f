package logging

import "github.com/prometheus/client_golang/prometheus"

var logMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "mock_exporter_log_messages_total",
	Help: "Total number of log messages by level, including suppressed ones",
}, []string{"level"})

func init() {
	prometheus.MustRegister(logMessagesTotal)
}
