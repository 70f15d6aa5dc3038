// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics registers the Prometheus collectors exposed at /metrics:
// per-chain queue depths, wallet pending counts, and block-tip freshness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups every collector this daemon exposes, scoped by a "chain"
// label so one dashboard covers every configured chain.
type Registry struct {
	QueueSize      *prometheus.GaugeVec
	WalletPending  *prometheus.GaugeVec
	CurrentBlock   *prometheus.GaugeVec
	SubmissionTotal *prometheus.CounterVec
}

// New registers every collector against reg (pass prometheus.DefaultRegisterer
// for the process-wide registry).
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		QueueSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "underwriter",
			Name:      "queue_size",
			Help:      "Number of orders currently held in a processing queue.",
		}, []string{"chain", "queue"}),
		WalletPending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "underwriter",
			Name:      "wallet_pending_transactions",
			Help:      "Number of transactions the wallet has submitted but not yet confirmed.",
		}, []string{"chain"}),
		CurrentBlock: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "underwriter",
			Name:      "current_block",
			Help:      "Last block height broadcast by the chain monitor, post block-delay.",
		}, []string{"chain"}),
		SubmissionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "underwriter",
			Name:      "submissions_total",
			Help:      "Transactions submitted, labeled by outcome.",
		}, []string{"chain", "role", "outcome"}),
	}
}
