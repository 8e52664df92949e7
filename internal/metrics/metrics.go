// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statementsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statements_processed_total",
			Help: "Statements that finished the processing pipeline, by final status",
		},
		[]string{"status"},
	)

	extractionStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_strategy_total",
			Help: "Extraction attempts by the strategy that produced the text (\"none\" when nothing did)",
		},
		[]string{"strategy"},
	)

	analyzerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_outcomes_total",
			Help: "Analyzer runs by outcome (ok or default)",
		},
		[]string{"outcome"},
	)

	transactionsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_inserted_total",
			Help: "Transaction rows committed",
		},
	)

	transactionsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_skipped_total",
			Help: "Model transaction elements dropped during coercion",
		},
	)

	dashboardsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboards_rendered_total",
			Help: "Dashboard renders by outcome (ok or error_page)",
		},
		[]string{"outcome"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	jobsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_handled_total",
			Help: "Background jobs by type and result",
		},
		[]string{"type", "result"},
	)
)

func StatementProcessed(status string) {
	statementsProcessed.WithLabelValues(status).Inc()
}

func ExtractionStrategy(strategy string) {
	extractionStrategy.WithLabelValues(strategy).Inc()
}

// AnalyzerOutcome records whether the analyzer fell back to its default result.
func AnalyzerOutcome(defaulted bool) {
	outcome := "ok"
	if defaulted {
		outcome = "default"
	}
	analyzerOutcomes.WithLabelValues(outcome).Inc()
}

func TransactionsInserted(n int) {
	transactionsInserted.Add(float64(n))
}

func TransactionsSkipped(n int) {
	transactionsSkipped.Add(float64(n))
}

func DashboardRendered(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error_page"
	}
	dashboardsRendered.WithLabelValues(outcome).Inc()
}

func HTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

func JobHandled(jobType, result string) {
	jobsHandled.WithLabelValues(jobType, result).Inc()
}
