// Package metrics exposes trigger outcomes as prometheus counters.
package metrics

import (
	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/prometheus/client_golang/prometheus"
)

var _ port.OutcomeRecorder = (*OutcomeCounter)(nil)

type OutcomeCounter struct {
	outcomes *prometheus.CounterVec
}

// NewOutcomeCounter registers the counter in reg.
func NewOutcomeCounter(reg prometheus.Registerer) OutcomeCounter {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_trigger_outcomes_total",
		Help: "Total number of dispatched triggers by kind and outcome",
	}, []string{"trigger", "outcome"})
	reg.MustRegister(outcomes)
	return OutcomeCounter{outcomes: outcomes}
}

func (c OutcomeCounter) RecordOutcome(kind domain.TriggerKind, outcome domain.Outcome) {
	c.outcomes.WithLabelValues(string(kind), outcome.String()).Inc()
}
