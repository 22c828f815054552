// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GateHolders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookdesk",
		Subsystem: "llm",
		Name:      "gate_holders",
		Help:      "Outbound LLM calls currently holding a rate gate slot.",
	})

	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookdesk",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "LLM backend calls by outcome.",
	}, []string{"outcome"})

	SQLSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookdesk",
		Subsystem: "sql",
		Name:      "statements_total",
		Help:      "Model-generated statements by outcome (rejected, failed, executed).",
	}, []string{"outcome"})

	EnrichedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookdesk",
		Subsystem: "enrichment",
		Name:      "items_total",
		Help:      "Enrichment items by outcome.",
	}, []string{"outcome"})
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeRetried   = "retried"
	OutcomeFatal     = "fatal"
	OutcomeDegraded  = "degraded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeFallback  = "fallback"
	OutcomeCancelled = "cancelled"
)
