package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Deletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpurge_deletions_total",
		Help: "Delete calls by outcome",
	}, []string{"outcome"})
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "xpurge_batch_duration_seconds",
		Help:    "Wall time of one deletion batch",
		Buckets: []float64{1, 2.5, 5, 10, 15, 30, 60},
	})
	PagesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpurge_pages_fetched_total",
		Help: "Timeline pages fetched by outcome",
	}, []string{"outcome"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpurge_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	QuotaClamps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpurge_quota_clamps_total",
		Help: "Selections reduced before dispatch",
	}, []string{"reason"})
	LedgerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xpurge_ledger_persist_errors_total",
		Help: "Best-effort quota ledger updates that failed",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpurge_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xpurge_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(Deletions, BatchDuration, PagesFetched, APIRetries, QuotaClamps, LedgerErrors, CommandRuns, CommandErrors)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	go func() { _ = http.ListenAndServe(addr, Mux()) }()
}

// Mux serves /metrics and /health.
func Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// ObserveBatchDuration records a batch wall time.
func ObserveBatchDuration(start time.Time) {
	BatchDuration.Observe(time.Since(start).Seconds())
}

func IncDeletion(ok bool) {
	if ok {
		Deletions.WithLabelValues("deleted").Inc()
		return
	}
	Deletions.WithLabelValues("failed").Inc()
}

func IncPage(ok bool) {
	if ok {
		PagesFetched.WithLabelValues("ok").Inc()
		return
	}
	PagesFetched.WithLabelValues("error").Inc()
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncQuotaClamp(reason string) { QuotaClamps.WithLabelValues(reason).Inc() }

func IncLedgerError() { LedgerErrors.Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
