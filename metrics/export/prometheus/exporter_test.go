package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goPortal "github.com/MrEthical07/goPortal"
)

type fakeSource struct {
	snapshot goPortal.MetricsSnapshot
	audit    goPortal.AuditStats
}

func (f fakeSource) MetricsSnapshot() goPortal.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditStats() goPortal.AuditStats           { return f.audit }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goPortal.MetricsSnapshot{
			Counters:   map[goPortal.MetricID]uint64{},
			Histograms: map[goPortal.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderAuditOnly(t *testing.T) {
	out := New(fakeSource{audit: goPortal.AuditStats{Dropped: 3}}).Render()
	if !strings.Contains(out, "portal_audit_dropped_total 3") {
		t.Fatalf("audit counters missing:\n%s", out)
	}
}

func TestRenderIncludesCountersHistogramAndSum(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goPortal.MetricsSnapshot{
			Counters: map[goPortal.MetricID]uint64{
				goPortal.MetricGuardRedirectHome: 4,
				goPortal.MetricCodeSent:          2,
			},
			Histograms: map[goPortal.MetricID][]uint64{
				goPortal.MetricBackendLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[goPortal.MetricID]time.Duration{
				goPortal.MetricBackendLatency: 1500 * time.Millisecond,
			},
		},
		audit: goPortal.AuditStats{Delivered: 9, Dropped: 2},
	})

	out := exp.Render()
	for _, want := range []string{
		"portal_guard_redirect_home_total 4",
		"portal_recovery_code_sent_total 2",
		"portal_login_success_total 0",
		"portal_backend_latency_seconds_bucket{le=\"0.05\"} 1",
		"portal_backend_latency_seconds_bucket{le=\"+Inf\"} 36",
		"portal_backend_latency_seconds_count 36",
		"portal_backend_latency_seconds_sum 1.5",
		"portal_audit_delivered_total 9",
		"portal_audit_dropped_total 2",
		"portal_audit_failed_total 0",
		"# TYPE portal_backend_latency_seconds histogram",
		"# TYPE portal_logout_total counter",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestEscapeHelp(t *testing.T) {
	if got := escapeHelp("a\\b\nc"); got != `a\\b\nc` {
		t.Fatalf("escapeHelp = %q", got)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goPortal.MetricsSnapshot{
			Counters:   map[goPortal.MetricID]uint64{goPortal.MetricLoginSuccess: 1},
			Histograms: map[goPortal.MetricID][]uint64{},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); got != ContentType {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "portal_login_success_total 1") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/metrics", nil))
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD wrote a body: %q", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := New(fakeSource{
		snapshot: goPortal.MetricsSnapshot{
			Counters: map[goPortal.MetricID]uint64{
				goPortal.MetricGuardRender:        10000,
				goPortal.MetricGuardRedirectLogin: 400,
				goPortal.MetricLoginSuccess:       800,
				goPortal.MetricLoginFailure:       40,
				goPortal.MetricIdentifySuccess:    120,
				goPortal.MetricCodeSent:           30,
			},
			Histograms: map[goPortal.MetricID][]uint64{
				goPortal.MetricBackendLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
