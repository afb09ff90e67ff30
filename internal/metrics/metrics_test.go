package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposure(t *testing.T) {
	IncDeletion(true)
	IncDeletion(false)
	IncPage(true)
	IncAPIRetry("/test")
	IncQuotaClamp("quota")
	IncLedgerError()
	IncCommandRun("purge")
	IncCommandError("purge")
	ObserveBatchDuration(time.Now().Add(-1500 * time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		`xpurge_deletions_total{outcome="deleted"}`,
		`xpurge_deletions_total{outcome="failed"}`,
		"xpurge_pages_fetched_total",
		"xpurge_api_retries_total",
		"xpurge_quota_clamps_total",
		"xpurge_ledger_persist_errors_total",
		"xpurge_command_runs_total",
		"xpurge_command_errors_total",
		"xpurge_batch_duration_seconds",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}

func TestMuxHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: %d", rec.Code)
	}
}
