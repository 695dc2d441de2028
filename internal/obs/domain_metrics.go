package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesPricedTotal counts quote pricing runs by calculation mode and outcome.
	QuotesPricedTotal *prometheus.CounterVec
	// PricingDuration records quote pricing latency in milliseconds by mode.
	PricingDuration *prometheus.HistogramVec
	// RolloutDecisionTotal counts feature flag evaluations by flag and reason.
	RolloutDecisionTotal *prometheus.CounterVec
	// QuoteStatusTransitions counts quote lifecycle transitions by target status.
	QuoteStatusTransitions *prometheus.CounterVec
	// HistoryAppendRetries counts history appends deferred to the retry queue.
	HistoryAppendRetries prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesPricedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_priced_total",
			Help:      "Count of quote pricing runs by calculation mode and outcome.",
		}, []string{"mode", "result"})
		PricingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_duration_ms",
			Help:      "Quote pricing latency distribution in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"mode"})
		RolloutDecisionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollout_decision_total",
			Help:      "Count of feature flag evaluations by flag and decision reason.",
		}, []string{"flag", "reason"})
		QuoteStatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_status_transitions_total",
			Help:      "Count of quote status transitions by target status.",
		}, []string{"status"})
		HistoryAppendRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_append_retries_total",
			Help:      "Number of history appends handed to the retry queue after a direct write failed.",
		})

		registerOrReuse(reg, QuotesPricedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesPricedTotal = v
			}
		})
		registerOrReuse(reg, PricingDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				PricingDuration = v
			}
		})
		registerOrReuse(reg, RolloutDecisionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RolloutDecisionTotal = v
			}
		})
		registerOrReuse(reg, QuoteStatusTransitions, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteStatusTransitions = v
			}
		})
		registerOrReuse(reg, HistoryAppendRetries, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				HistoryAppendRetries = v
			}
		})
	})
}
