package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Database connection
	// ============================================
	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shield_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shield_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	// ============================================
	// NATS
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shield_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)

	// ============================================
	// RPC transport
	// ============================================
	RPCAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_rpc_attempts_total",
			Help: "JSON-RPC attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	RPCRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_rpc_retries_total",
			Help: "JSON-RPC retries by reason",
		},
		[]string{"reason"},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shield_rpc_call_duration_seconds",
			Help:    "JSON-RPC call duration including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ============================================
	// Notes and balance
	// ============================================
	NoteDecryptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shield_note_decrypt_failures_total",
		Help: "Encrypted outputs that failed to decrypt with the session keys",
	})

	NotesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_notes_discovered_total",
			Help: "Decrypted notes by version",
		},
		[]string{"version"},
	)

	PrivateBalanceLamports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shield_private_balance_lamports",
		Help: "Sum of unspent note amounts at the last balance query",
	})

	// ============================================
	// Transfers
	// ============================================
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_transfers_total",
			Help: "Private transfers by final status",
		},
		[]string{"status"},
	)

	TransferStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shield_transfer_stage_duration_seconds",
			Help:    "Duration of each private transfer stage",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	// ============================================
	// HTTP API
	// ============================================
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)
