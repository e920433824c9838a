package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry Metrics
var (
	// RegistryOpenSessions tracks the number of currently open overlay sessions
	RegistryOpenSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_open_sessions",
			Help: "Number of currently open overlay sessions",
		},
	)

	// RegistryBroadcastsTotal tracks broadcasts by event type
	RegistryBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_broadcasts_total",
			Help: "Total broadcasts by event type",
		},
		[]string{"type"},
	)

	// RegistryDroppedMessagesTotal tracks messages dropped because a session's send buffer was full
	RegistryDroppedMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_dropped_messages_total",
			Help: "Total messages dropped due to a full per-session send buffer",
		},
	)

	// RegistryPingFailures tracks keepalive ping failures
	RegistryPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_ping_failures_total",
			Help: "Total WebSocket keepalive ping failures",
		},
	)

	// RegistryCommandChannelDepth tracks the registry actor's command queue depth
	RegistryCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_command_channel_depth",
			Help: "Current depth of the registry command channel",
		},
	)
)

// Router Metrics
var (
	// RouterEventsTotal tracks inbound events by type and outcome
	RouterEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_events_total",
			Help: "Total inbound session events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// RouterMalformedEventsTotal tracks events dropped at the parse boundary
	RouterMalformedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "router_malformed_events_total",
			Help: "Total inbound events dropped because the envelope was unparseable",
		},
	)
)

// Quota Cache Metrics
var (
	// QuotaCacheHits tracks lookups served from the cache
	QuotaCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_cache_hits_total",
			Help: "Total quota cache hits",
		},
	)

	// QuotaCacheMisses tracks lookups that fell through to the external API
	QuotaCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_cache_misses_total",
			Help: "Total quota cache misses (including expired entries)",
		},
	)

	// QuotaCacheEvictions tracks entries evicted after TTL expiry
	QuotaCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_cache_evictions_total",
			Help: "Total quota cache entries evicted after TTL expiry",
		},
	)

	// QuotaCacheSize tracks current cache entry count
	QuotaCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quota_cache_size",
			Help: "Current number of quota cache entries",
		},
	)
)

// Ingest Metrics
var (
	// IngestMessagesTotal tracks normalized chat messages by platform
	IngestMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total chat messages ingested by platform",
		},
		[]string{"platform"},
	)

	// IngestReconnectsTotal tracks ingest worker restarts by platform
	IngestReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_reconnects_total",
			Help: "Total ingest worker reconnects by platform",
		},
		[]string{"platform"},
	)

	// IngestPollDuration tracks YouTube poll round-trip latency in seconds
	IngestPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_poll_duration_seconds",
			Help:    "YouTube live chat poll duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// IngestCircuitState tracks the YouTube poller circuit breaker state (0=closed, 1=half-open, 2=open)
	IngestCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_circuit_state",
			Help: "YouTube poller circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
