package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settlement"

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	LedgerPostings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_postings_total",
		Help:      "Ledger entries posted, by category and entry type.",
	}, []string{"category", "type"})

	HoldReleases = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hold_releases_total",
		Help:      "Warranty holds released, by reason.",
	}, []string{"reason"})

	CommissionResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commission_resolutions_total",
		Help:      "Commission resolutions, by winning scope kind. Failures use kind none.",
	}, []string{"scope"})

	SettlementTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_transitions_total",
		Help:      "Settlement actions, by action and outcome.",
	}, []string{"action", "outcome"})

	TrustScoreFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trust_score_fallbacks_total",
		Help:      "Trust score computations that returned the baseline.",
	}, []string{"role"})

	Withdrawals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "withdrawals_total",
		Help:      "Withdrawal requests, by status.",
	}, []string{"status"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Background job runs, by job and result.",
	}, []string{"job", "result"})

	HTTPRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LedgerPostings,
		HoldReleases,
		CommissionResolutions,
		SettlementTransitions,
		TrustScoreFallbacks,
		Withdrawals,
		JobRuns,
		HTTPRequests,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Outcome labels an operation result as ok or error.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
