// Package metrics registers the Prometheus instruments exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// SendsTotal counts outbound transfers by token and outcome.
	SendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_sends_total",
		Help: "Total outbound transfers",
	}, []string{"token_id", "outcome"})

	// ReceivesTotal counts inbound message credits by token and outcome.
	ReceivesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_receives_total",
		Help: "Total inbound message credits",
	}, []string{"token_id", "outcome"})

	// ReplaysRejectedTotal counts rejected duplicate messages.
	ReplaysRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_replays_rejected_total",
		Help: "Total inbound messages rejected as replays",
	})

	// LockedAmount reports the current custody counter per token.
	LockedAmount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bridge_locked_amount",
		Help: "Locked liquidity per token",
	}, []string{"token_id"})

	// FeeVaultBalance reports the accumulated native fee balance.
	FeeVaultBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_fee_vault_balance",
		Help: "Accumulated protocol fees in the fee vault",
	})

	// OracleRequestsTotal counts price oracle lookups by outcome.
	OracleRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_oracle_requests_total",
		Help: "Total price oracle lookups",
	}, []string{"outcome"})

	// ReconciliationDrift reports the last observed ledger/chain drift per token.
	ReconciliationDrift = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bridge_reconciliation_drift",
		Help: "Absolute difference between the ledger and on-chain vault balance",
	}, []string{"token_id"})

	// PrunedMessagesTotal counts replay records removed by retention.
	PrunedMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_pruned_messages_total",
		Help: "Total consumed message records removed by retention",
	})

	// DatabaseConnectionsGauge reports pool state by connection state.
	DatabaseConnectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bridge_database_connections",
		Help: "Database connection pool state",
	}, []string{"state"})
)
