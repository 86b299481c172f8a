package signx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/signx/internal/mediatortest"
)

const eventWait = 3 * time.Second

func testConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Sitename = "Test Site"
	cfg.Network = Devnet
	cfg.Polling = PollingConfig{
		Interval:    5 * time.Millisecond,
		Timeout:     2 * time.Second,
		TimeoutTick: 5 * time.Millisecond,
	}
	cfg.Transport.RequestTimeout = 2 * time.Second
	cfg.Events.BufferSize = 256
	cfg.Metrics.Enabled = true
	return cfg
}

// newTestEngine builds an engine against a fresh scripted mediator. configure runs
// before Build.
func newTestEngine(t *testing.T, configure ...func(*Builder)) (*Engine, *mediatortest.Server, *ChannelSink) {
	t.Helper()

	srv := mediatortest.New()
	t.Cleanup(srv.Close)

	sink := NewChannelSink(256)
	b := New().WithConfig(testConfig(srv.URL)).WithEventSink(sink)
	for _, f := range configure {
		f(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, srv, sink
}

func withPollTimeout(d time.Duration) func(*Builder) {
	return func(b *Builder) {
		b.config.Polling.Timeout = d
	}
}

func nextEvent(t *testing.T, sink *ChannelSink) Event {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(eventWait):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func expectEvent(t *testing.T, sink *ChannelSink, name EventName) Event {
	t.Helper()
	ev := nextEvent(t, sink)
	if ev.Name != name {
		t.Fatalf("expected %s, got %s (err=%v message=%q)", name, ev.Name, ev.Err, ev.Message)
	}
	return ev
}

func expectQuiet(t *testing.T, sink *ChannelSink, d time.Duration) {
	t.Helper()
	select {
	case ev := <-sink.Events():
		t.Fatalf("expected no event, got %s (err=%v)", ev.Name, ev.Err)
	case <-time.After(d):
	}
}

// eventually polls cond until it holds or the event wait elapses.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(eventWait)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// transportFunc adapts a function to Transport.
type transportFunc func(ctx context.Context, route string, body any) (*Envelope, error)

func (f transportFunc) Post(ctx context.Context, route string, body any) (*Envelope, error) {
	return f(ctx, route, body)
}

var errUnreachable = errors.New("mediator unreachable")

func seq(n int) *int {
	return &n
}

func sampleRequest(bodies ...string) TransactRequest {
	req := TransactRequest{
		Address:   "ixo1address",
		DID:       "did:x:zQ3sh",
		PubKey:    "A1b2C3",
		Timestamp: "2024-05-01T10:00:00.000Z",
	}
	for _, b := range bodies {
		req.Transactions = append(req.Transactions, Transaction{TxBodyHex: b})
	}
	return req
}
