//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	signx "github.com/MrEthical07/signx"
	"github.com/MrEthical07/signx/internal/mediatortest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const channel = "signx:events"

type wireEvent struct {
	Name    string `json:"name"`
	CycleID string `json:"cycle_id"`
	Route   string `json:"route"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Timeout bool   `json:"timeout"`
}

// newIntegrationEngine wires an engine to a scripted mediator over HTTP and publishes
// its events on a miniredis channel the returned subscription reads.
func newIntegrationEngine(t *testing.T, configure func(*signx.Config)) (*signx.Engine, *mediatortest.Server, *redis.PubSub) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := rdb.Subscribe(context.Background(), channel)
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	srv := mediatortest.New()

	cfg := signx.DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.Sitename = "integration"
	cfg.Network = signx.Testnet
	cfg.Polling.Interval = 10 * time.Millisecond
	cfg.Polling.Timeout = 2 * time.Second
	cfg.Polling.TimeoutTick = 10 * time.Millisecond
	cfg.Metrics.Enabled = true
	if configure != nil {
		configure(&cfg)
	}

	engine, err := signx.New().
		WithConfig(cfg).
		WithEventSink(signx.NewRedisSink(rdb, channel, time.Second)).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		srv.Close()
		_ = sub.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return engine, srv, sub
}

func receive(t *testing.T, sub *redis.PubSub) wireEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	var ev wireEvent
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		t.Fatalf("event is not JSON: %v", err)
	}
	return ev
}

func expectName(t *testing.T, sub *redis.PubSub, name signx.EventName) wireEvent {
	t.Helper()
	ev := receive(t, sub)
	if ev.Name != string(name) {
		t.Fatalf("expected %s, got %s (%s)", name, ev.Name, ev.Error)
	}
	return ev
}
