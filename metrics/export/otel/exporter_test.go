package otel

import (
	"context"
	"sync"
	"testing"

	signx "github.com/MrEthical07/signx"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot signx.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() signx.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := signx.MetricsSnapshot{
		Counters:   make(map[signx.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[signx.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	if f.snapshot.Attempts != nil {
		out.Attempts = make(map[signx.RouteOutcome]uint64, len(f.snapshot.Attempts))
		for k, v := range f.snapshot.Attempts {
			out.Attempts[k] = v
		}
	}
	return out
}

func (f *fakeSource) EventsDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// int64Value returns the single data point of the named instrument.
func int64Value(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				return data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				return data.DataPoints[0].Value
			}
			t.Fatalf("unexpected data type %T for %s", m.Data, name)
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newMeter()
	meter := provider.Meter("signx-test")

	src := &fakeSource{
		snapshot: signx.MetricsSnapshot{
			Counters: map[signx.MetricID]uint64{
				signx.MetricLoginSuccess: 3,
			},
			Histograms: map[signx.MetricID][]uint64{
				signx.MetricPollAttemptLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
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
	if got := int64Value(t, rm, "signx_login_success_total"); got != 3 {
		t.Fatalf("expected 3 logins, got %d", got)
	}
	if got := int64Value(t, rm, "signx_poll_attempt_latency_seconds_bucket_le_0_25"); got != 3 {
		t.Fatalf("expected cumulative bucket 3, got %d", got)
	}
	if got := int64Value(t, rm, "signx_poll_attempt_latency_seconds_count"); got != 8 {
		t.Fatalf("expected count 8, got %d", got)
	}
	if got := int64Value(t, rm, "signx_events_dropped_total"); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}
}

func TestExporterRouteAttemptAttributes(t *testing.T) {
	reader, provider := newMeter()

	src := &fakeSource{
		snapshot: signx.MetricsSnapshot{
			Counters: map[signx.MetricID]uint64{signx.MetricPollAttempt: 3},
			Attempts: map[signx.RouteOutcome]uint64{
				{Route: "/login/fetch", Outcome: "continue"}: 2,
				{Route: "/login/fetch", Outcome: "success"}:  1,
			},
		},
	}
	exp, err := NewOTelExporterFromSource(provider.Meter("signx-test"), src)
	if err != nil {
		t.Fatal(err)
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "signx_poll_route_attempts_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value(attribute.Key("route"))
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				got[route.AsString()+" "+outcome.AsString()] = dp.Value
			}
		}
	}
	if len(got) != 2 || got["/login/fetch continue"] != 2 || got["/login/fetch success"] != 1 {
		t.Fatalf("unexpected route attempts: %v", got)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newMeter()

	if _, err := NewOTelExporterFromSource(provider.Meter("signx-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newMeter()
	meter := provider.Meter("signx-test")

	src := &fakeSource{
		snapshot: signx.MetricsSnapshot{
			Counters: map[signx.MetricID]uint64{
				signx.MetricPollAttempt: 1,
			},
			Histograms: map[signx.MetricID][]uint64{
				signx.MetricPollAttemptLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
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
			src.snapshot.Counters[signx.MetricPollAttempt] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

func TestExporterReadsEngine(t *testing.T) {
	reader, provider := newMeter()

	cfg := signx.DefaultConfig()
	cfg.Sitename = "otel"
	cfg.Endpoint = "https://mediator.test"
	engine, err := signx.New().WithConfig(cfg).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	exp, err := NewOTelExporter(provider.Meter("signx-test"), engine)
	if err != nil {
		t.Fatal(err)
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	if got := int64Value(t, rm, "signx_transact_session_created_total"); got != 0 {
		t.Fatalf("expected a fresh engine to report 0, got %d", got)
	}
}
