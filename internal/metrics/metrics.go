package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HitsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_hits_recorded_total",
			Help: "number of access records stored",
		},
	)
	StatsQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_view_queries_total",
			Help: "number of view aggregation queries by uniqueness",
		},
		[]string{"unique"},
	)
	HitsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_hits_dispatched_total",
			Help: "hits handed to the stats service by outcome",
		},
		[]string{"outcome"},
	)
	StatsUnavailable = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_stats_unavailable_total",
			Help: "view lookups that fell back because the stats service failed",
		},
	)
	RequestsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_requests_resolved_total",
			Help: "participation requests resolved by arbitration, by resulting status",
		},
		[]string{"status"},
	)
	EventsModerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_events_moderated_total",
			Help: "admin moderation actions applied, by resulting state",
		},
		[]string{"state"},
	)
)

var (
	statsOnce    sync.Once
	eventhubOnce sync.Once
)

// InitStats registers the statistics service collectors with the default registry.
// Safe to call more than once.
func InitStats() {
	statsOnce.Do(func() {
		prometheus.MustRegister(StatsCollectors()...)
	})
}

// InitEventhub registers the main service collectors with the default registry.
// Safe to call more than once.
func InitEventhub() {
	eventhubOnce.Do(func() {
		prometheus.MustRegister(EventhubCollectors()...)
	})
}

// StatsCollectors are the collectors updated by the statistics service.
func StatsCollectors() []prometheus.Collector {
	return []prometheus.Collector{HitsRecorded, StatsQueries}
}

// EventhubCollectors are the collectors updated by the main service.
func EventhubCollectors() []prometheus.Collector {
	return []prometheus.Collector{HitsDispatched, StatsUnavailable, RequestsResolved, EventsModerated}
}
