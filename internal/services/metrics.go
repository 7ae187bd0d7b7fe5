package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	BoardCommands        *prometheus.CounterVec
	BroadcastsSent       prometheus.Counter

	// Invitation metrics
	InvitesSent   prometheus.Counter
	InvitesFailed prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics(broadcaster Broadcaster) *Metrics {
	metrics := &Metrics{
		// WebSocket active connections (gauge - can go up and down)
		WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "simplekanban_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		}),

		// Board commands by command name and outcome
		BoardCommands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "simplekanban_board_commands_total",
			Help: "Total number of board commands by command and status",
		}, []string{"command", "status"}), // status: "ok" or "error"

		BroadcastsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "simplekanban_broadcasts_total",
			Help: "Total number of group broadcasts published",
		}),

		InvitesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "simplekanban_invites_sent_total",
			Help: "Total number of invitation emails sent",
		}),

		InvitesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "simplekanban_invites_failed_total",
			Help: "Total number of invitation attempts that failed",
		}),
	}

	// Register a collector that reads the live count from the broadcaster
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "simplekanban_websocket_connections_current",
			Help: "Current number of active WebSocket connections (from broadcaster)",
		},
		func() float64 {
			if broadcaster != nil {
				return float64(broadcaster.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordWebSocketConnect records a new WebSocket connection
func (m *Metrics) RecordWebSocketConnect() {
	m.WebSocketConnections.Inc()
}

// RecordWebSocketDisconnect records a WebSocket disconnection
func (m *Metrics) RecordWebSocketDisconnect() {
	m.WebSocketConnections.Dec()
}

// RecordBoardCommand records a processed board command
func (m *Metrics) RecordBoardCommand(command, status string) {
	m.BoardCommands.WithLabelValues(command, status).Inc()
}

// RecordBroadcast records a published group broadcast
func (m *Metrics) RecordBroadcast() {
	m.BroadcastsSent.Inc()
}

// RecordInviteSent records a delivered invitation email
func (m *Metrics) RecordInviteSent() {
	m.InvitesSent.Inc()
}

// RecordInviteFailed records a failed invitation attempt
func (m *Metrics) RecordInviteFailed() {
	m.InvitesFailed.Inc()
}
