package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal counts code executions by language and terminal status.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_executions_total",
			Help: "Total number of code executions",
		},
		[]string{"language", "status"},
	)

	// ExecutionDuration tracks the wall time of code executions in seconds.
	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collab_execution_duration_seconds",
			Help:    "Duration of code executions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"language"},
	)

	// WorkersActive tracks the number of pool workers currently executing.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_workers_active",
			Help: "Number of currently active execution workers",
		},
	)

	// QueueDepth tracks executions admitted but not yet picked up by a worker.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_execution_queue_depth",
			Help: "Number of executions waiting for a worker",
		},
	)

	// ExecutionsRejected counts executions refused because the queue was full
	// or they waited too long in it.
	ExecutionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_executions_rejected_total",
			Help: "Total number of executions rejected by admission control",
		},
	)

	// SandboxFailures counts sandbox infrastructure failures (not user code errors).
	SandboxFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_sandbox_failures_total",
			Help: "Total number of sandbox infrastructure failures",
		},
	)

	// RealtimeConnections tracks open realtime connections.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_realtime_connections",
			Help: "Number of open realtime connections",
		},
	)

	// RealtimeEvents counts inbound realtime events by name and outcome.
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_realtime_events_total",
			Help: "Total number of inbound realtime events",
		},
		[]string{"event", "outcome"},
	)

	// RealtimeSlowClients counts connections dropped because they fell behind.
	RealtimeSlowClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_realtime_slow_clients_total",
			Help: "Total number of realtime connections dropped for a full send buffer",
		},
	)
)
