// Package metrics exposes Prometheus metrics for the routing engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the application's own prometheus registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// AssignmentsTotal counts finalized assignments by method tag.
var AssignmentsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "csmrouter",
	Name:      "assignments_total",
	Help:      "Finalized account assignments by optimization method",
}, []string{"method"})

// UnassignableTotal counts accounts for which no eligible agent existed.
var UnassignableTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "csmrouter",
	Name:      "unassignable_total",
	Help:      "Accounts that could not be placed on any eligible agent",
})

// RetriesTotal counts proposal rebuilds triggered by reviewer verdicts.
var RetriesTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "csmrouter",
	Name:      "review_retries_total",
	Help:      "Proposal rebuilds triggered by rejected review verdicts",
})

// ForceFinalizedTotal counts runs finalized after retries were exhausted.
var ForceFinalizedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "csmrouter",
	Name:      "force_finalized_total",
	Help:      "Runs finalized with the last proposal after exhausting retries",
})

// SolverFallbacksTotal counts batch optimizations that fell back to greedy
// sequential placement.
var SolverFallbacksTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "csmrouter",
	Name:      "solver_fallbacks_total",
	Help:      "Batch optimizations that fell back to greedy placement",
})

// SubstitutionViolationsTotal counts reviewer substitutions discarded for
// naming an agent outside the disclosed alternates.
var SubstitutionViolationsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "csmrouter",
	Name:      "substitution_violations_total",
	Help:      "Reviewer substitutions ignored for violating the alternates contract",
})

// BookCountStdDev tracks the post-run spread of account counts across books.
var BookCountStdDev = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "csmrouter",
	Name:      "book_count_stddev",
	Help:      "Population standard deviation of per-agent account counts",
})

// BookNeedinessStdDev tracks the post-run spread of summed neediness.
var BookNeedinessStdDev = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "csmrouter",
	Name:      "book_neediness_stddev",
	Help:      "Population standard deviation of per-agent neediness totals",
})
