package notify

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPublishTimeout = 2 * time.Second

// RedisSink publishes each event as JSON on a Redis pub/sub channel, so processes other
// than the one polling can follow a flow.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
	failed  atomic.Uint64
}

// NewRedisSink returns a sink publishing to channel. A non-positive timeout uses two
// seconds per publish.
func NewRedisSink(client redis.UniversalClient, channel string, timeout time.Duration) *RedisSink {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &RedisSink{
		client:  client,
		channel: channel,
		timeout: timeout,
	}
}

func (s *RedisSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.client == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		s.failed.Add(1)
	}
}

// Failed counts events that could not be encoded or published.
func (s *RedisSink) Failed() uint64 {
	if s == nil {
		return 0
	}
	return s.failed.Load()
}
