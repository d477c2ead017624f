package watcher

import "github.com/prometheus/client_golang/prometheus"

var (
	watchEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_watch_events_total",
		Help: "Total number of relevant filesystem events in the fixture directory",
	})

	watchRefreshesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_exporter_watch_refreshes_total",
		Help: "Total number of forced refreshes triggered by fixture changes",
	})
)

func init() {
	prometheus.MustRegister(watchEventsTotal, watchRefreshesTotal)
}
