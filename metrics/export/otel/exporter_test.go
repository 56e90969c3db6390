package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	goPortal "github.com/MrEthical07/goPortal"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goPortal.MetricsSnapshot
	audit    goPortal.AuditStats
}

func (f *fakeSource) MetricsSnapshot() goPortal.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goPortal.MetricsSnapshot{
		Counters:   make(map[goPortal.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goPortal.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditStats() goPortal.AuditStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.audit
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("portal-test")

	src := &fakeSource{
		snapshot: goPortal.MetricsSnapshot{
			Counters: map[goPortal.MetricID]uint64{
				goPortal.MetricIdentifySuccess: 3,
			},
			Histograms: map[goPortal.MetricID][]uint64{
				goPortal.MetricBackendLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		audit: goPortal.AuditStats{Dropped: 1},
	}

	exp, err := New(meter, src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			switch m.Name {
			case "portal_verification_identify_success_total":
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
					t.Fatalf("unexpected identify counter data: %+v", m.Data)
				}
			case "portal_backend_latency_seconds_count":
				g, ok := m.Data.(metricdata.Gauge[int64])
				if !ok || len(g.DataPoints) != 1 || g.DataPoints[0].Value != 8 {
					t.Fatalf("unexpected histogram count: %+v", m.Data)
				}
			}
		}
	}
	for _, name := range []string{
		"portal_verification_identify_success_total",
		"portal_backend_latency_seconds_bucket_le_inf",
		"portal_backend_latency_seconds_sum",
		"portal_audit_dropped_total",
		"portal_audit_failed_total",
	} {
		if !found[name] {
			t.Fatalf("instrument %s not collected", name)
		}
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	meter := provider.Meter("portal-test")

	if _, err := New(meter, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := New(nil, &fakeSource{}); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("portal-test")

	src := &fakeSource{
		snapshot: goPortal.MetricsSnapshot{
			Counters: map[goPortal.MetricID]uint64{
				goPortal.MetricLoginSuccess: 1,
			},
			Histograms: map[goPortal.MetricID][]uint64{
				goPortal.MetricBackendLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := New(meter, src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goPortal.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
