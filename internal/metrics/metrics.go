// Package metrics declares the Prometheus instruments for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersRecorded counts fixed transactions written directly
	// (not via finalization).
	TransfersRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitty_transfers_recorded_total",
		Help: "Fixed transactions recorded as direct transfers.",
	})

	// TransactionsCancelled counts soft-cancelled fixed transactions.
	TransactionsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitty_transactions_cancelled_total",
		Help: "Fixed transactions soft-cancelled.",
	})

	// PendingOpened counts created pending transactions.
	PendingOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitty_pending_opened_total",
		Help: "Pending transactions opened.",
	})

	// PendingFinalized counts pending transactions migrated into the
	// fixed ledger by expiry.
	PendingFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitty_pending_finalized_total",
		Help: "Pending transactions finalized into the fixed ledger.",
	})

	// DiningChargesFinalized counts dining charges converted into fixed
	// transactions at dining-list closing.
	DiningChargesFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitty_dining_charges_finalized_total",
		Help: "Dining charges finalized into the fixed ledger.",
	})
)
