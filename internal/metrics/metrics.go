// Package metrics holds the prometheus collectors shared by the room tasks
// and the HTTP/websocket layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-room or per-player labels)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in one room tick, including the broadcast",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_rooms_active",
		Help: "Rooms currently registered",
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_player_count",
		Help: "Players across all rooms",
	})

	roundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_rounds_started_total",
		Help: "Rounds started, including restarts",
	})

	roundsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_rounds_ended_total",
		Help: "Rounds ended by winning side",
	}, []string{"winner"}) // Bounded: "team", "hunter"

	pickups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_pickups_total",
		Help: "Collectibles picked up",
	})

	tags = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_tags_total",
		Help: "Runners tagged",
	})

	admissionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_admission_rejected_total",
		Help: "Join attempts rejected",
	}, []string{"reason"}) // Bounded: "missing_code", "role_conflict", "room_full", "server_full"

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_received_total",
		Help: "Inbound WebSocket messages by type",
	}, []string{"type"}) // Bounded: "join", "input", "restart", "invalid"

	wsMessagesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})

	wsMessagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_skipped_total",
		Help: "Outbound messages skipped because the client queue was full or closed",
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Total events accepted by the audit log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})
)

// RecordTick records tick timing
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// RoomOpened and RoomClosed track the registry size
func RoomOpened() { activeRooms.Inc() }
func RoomClosed() { activeRooms.Dec() }

// PlayerJoined and PlayerLeft track players across rooms
func PlayerJoined() { playerCount.Inc() }
func PlayerLeft()   { playerCount.Dec() }

// RecordRoundStart counts a new round
func RecordRoundStart() {
	roundsStarted.Inc()
}

// RecordRoundEnd counts a finished round; winner must be "team" or "hunter"
func RecordRoundEnd(winner string) {
	roundsEnded.WithLabelValues(winner).Inc()
}

// RecordPickups and RecordTags add the events of one step
func RecordPickups(n int) { pickups.Add(float64(n)) }
func RecordTags(n int)    { tags.Add(float64(n)) }

// RecordAdmissionRejected increments the rejection counter
// reason must be one of: "missing_code", "role_conflict", "room_full", "server_full"
func RecordAdmissionRejected(reason string) {
	admissionRejected.WithLabelValues(reason).Inc()
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// RecordMessageIn counts a decoded inbound message by its type tag
func RecordMessageIn(msgType string) {
	wsMessagesIn.WithLabelValues(msgType).Inc()
}

// IncrementWSMessages increments the outbound message counter
func IncrementWSMessages() {
	wsMessagesOut.Inc()
}

// IncrementWSSkipped counts a dropped outbound frame
func IncrementWSSkipped() {
	wsMessagesSkipped.Inc()
}

// UpdateEventLogStats mirrors the audit log counters
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}
