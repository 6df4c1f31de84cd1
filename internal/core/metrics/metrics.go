package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsReconciled counts transactions driven to a terminal state,
	// labelled by outcome (completed or failed).
	TransactionsReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remit_transactions_reconciled_total",
		Help: "Transactions moved to a terminal state by the reconciler or sweeper.",
	}, []string{"outcome"})

	// BatchesProcessed counts scheduled batch executions, labelled by outcome
	// (ok when every member finished, partial otherwise).
	BatchesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remit_batches_processed_total",
		Help: "Scheduled transaction batches processed by the sweeper.",
	}, []string{"outcome"})
)
