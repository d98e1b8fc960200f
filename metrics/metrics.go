// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	counterClamps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardiao",
		Name:      "counter_clamps_total",
		Help:      "Material counters forced back into range (available/loaned out of bounds).",
	}, []string{"op", "field"})

	loanTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardiao",
		Name:      "loan_transitions_total",
		Help:      "Loan lifecycle transitions by resulting status.",
	}, []string{"status"})

	loanConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guardiao",
		Name:      "loan_conflicts_total",
		Help:      "Loan creations rejected for lack of stock or a serialized item already out.",
	})
)

// Clamp records one clamp event. op is the engine operation, field the counter.
func Clamp(op, field string) { counterClamps.WithLabelValues(op, field).Inc() }

func LoanTransition(status string) { loanTransitions.WithLabelValues(status).Inc() }

func LoanConflict() { loanConflicts.Inc() }
