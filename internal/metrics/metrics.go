package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaychat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Business metrics
	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relaychat_messages_appended_total",
			Help: "Total messages appended to the store",
		},
	)

	SeenRecordsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relaychat_seen_records_created_total",
			Help: "Total seen records created",
		},
	)

	// Fan-out metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaychat_events_published_total",
			Help: "Total events handed to the fan-out broker",
		},
		[]string{"event_type"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaychat_deliveries_total",
			Help: "Per-subscriber delivery attempts",
		},
		[]string{"result"}, // "ok" or "failed"
	)

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relaychat_connections_active",
			Help: "Currently registered connections",
		},
	)

	ResumeRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relaychat_resume_requests_total",
			Help: "Total resume requests served",
		},
	)
)
