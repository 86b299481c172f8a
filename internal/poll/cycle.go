package poll

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	stateRunning int32 = iota
	stateClaimed
	stateCanceled
)

// Decoder validates and decodes the data of a success envelope.
type Decoder func(data json.RawMessage) (any, error)

// Spec describes one poll cycle.
type Spec struct {
	Route    string
	Body     any
	Interval time.Duration
	Timeout  time.Duration
	Decode   Decoder
}

// Result is the terminal outcome of a cycle.
type Result struct {
	Cycle *Cycle
	Value any
	Data  json.RawMessage
	Err   error
}

// TimedOut reports whether the cycle ended on its time budget.
func (r Result) TimedOut() bool {
	return errors.Is(r.Err, ErrTimeout)
}

// Handler receives the terminal result of a cycle. It runs on the cycle goroutine.
type Handler func(Result)

// Cycle is a handle to a running poll cycle.
type Cycle struct {
	ID       uuid.UUID
	Route    string
	Started  time.Time
	Deadline time.Time

	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}
}

// Claim marks the cycle resolved. Only the first Claim on a cycle that was not
// cancelled returns true.
func (c *Cycle) Claim() bool {
	return c != nil && c.state.CompareAndSwap(stateRunning, stateClaimed)
}

// Cancel stops the cycle: the in-flight attempt, the pending interval timer and the
// timeout ticker. It returns false when the cycle already resolved or was cancelled.
// A cancelled cycle never reaches its handler.
func (c *Cycle) Cancel() bool {
	if c == nil || !c.state.CompareAndSwap(stateRunning, stateCanceled) {
		return false
	}
	c.cancel()
	return true
}

// Canceled reports whether Cancel won over resolution.
func (c *Cycle) Canceled() bool {
	return c != nil && c.state.Load() == stateCanceled
}

// Done is closed once the cycle goroutine has exited.
func (c *Cycle) Done() <-chan struct{} {
	return c.done
}
