package signx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/signx/internal/notify"
	"github.com/MrEthical07/signx/internal/poll"
	"github.com/MrEthical07/signx/internal/secure"
	"github.com/MrEthical07/signx/internal/transport"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine runs SignX flows against one mediator. Each Engine owns its transact
// session, poll cycles and event dispatcher; nothing is shared between engines.
// Methods are safe for concurrent use.
type Engine struct {
	config    Config
	transport Transport
	poller    *poll.Poller
	events    *notify.Dispatcher
	metrics   *Metrics
	clock     clock.Clock
	logger    zerolog.Logger

	// txMu serializes Transact calls.
	txMu sync.Mutex
	// emitMu orders session events against the end of their session. It is taken
	// before mu and held until the event is handed to the dispatcher.
	emitMu sync.Mutex

	mu      sync.Mutex
	session sessionState
	epoch   uint64
	closed  bool
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Close stops every poll cycle, ends the transact session, waits for cycle goroutines
// and flushes the event dispatcher. It must not be called from an EventSink.
func (e *Engine) Close() {
	if e == nil || e.poller == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.StopPolling(StopOptions{})
	e.poller.Close()
	e.events.Close()
}

// Dispose is Close.
func (e *Engine) Dispose() {
	e.Close()
}

// StopPolling cancels every live poll cycle. In-flight requests are aborted and never
// produce events. Unless opts.KeepSession is set the transact session is cleared,
// emitting SIGN_X_TRANSACT_SESSION_ENDED when one had started. opts.FailEvent is
// emitted with opts.Message when both are set. An EventSink may call it only when the
// dispatcher drops on a full buffer (Events.DropIfFull).
func (e *Engine) StopPolling(opts StopOptions) {
	if e == nil || e.poller == nil {
		return
	}

	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	var ended *SessionEvent
	e.mu.Lock()
	n := e.poller.StopAll()
	if opts.KeepSession {
		if e.session.cycle != nil {
			e.session.cycle.Cancel()
			e.session.cycle = nil
		}
		e.session.halted = e.session.present()
	} else {
		ended = e.endSessionLocked()
	}
	e.mu.Unlock()

	e.logger.Debug().Int("cycles", n).Bool("keep_session", opts.KeepSession).Msg("polling stopped")

	if opts.Message != "" && opts.FailEvent != "" {
		e.emit(Event{
			Name:    opts.FailEvent,
			Err:     errors.New(opts.Message),
			Message: opts.Message,
		})
	}
	if ended != nil {
		msg := opts.Message
		if msg == "" {
			msg = "STOPPED"
		}
		e.emitSessionEnded(*ended, Event{Message: msg})
	}
}

// Session returns the transact session, if any. The secret nonce is never exposed.
func (e *Engine) Session() (SessionInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.info(), e.session.present()
}

// GenerateRandomHash returns 32 random bytes, hex encoded.
func (e *Engine) GenerateRandomHash() (string, error) {
	return secure.NewHash()
}

// Deeplink formats a flow result with the configured scheme.
func (e *Engine) Deeplink(data any) (string, error) {
	return Deeplink(data, e.config.DeeplinkScheme)
}

// MetricsSnapshot returns the engine counters; empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// EventsDropped counts events discarded because the dispatcher buffer was full.
func (e *Engine) EventsDropped() uint64 {
	if e == nil || e.events == nil {
		return 0
	}
	return e.events.Dropped()
}

func (e *Engine) ready() error {
	if e == nil || e.poller == nil || e.events == nil || e.transport == nil {
		return ErrEngineNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

func (e *Engine) emit(ev Event) {
	ev.ID = uuid.New()
	ev.Time = e.clock.Now()
	e.events.Emit(context.Background(), ev)
}

// failureEvent describes a failed cycle. Timeouts carry Message TIMEOUT.
func failureEvent(name EventName, res poll.Result) Event {
	ev := Event{
		Name: name,
		Err:  res.Err,
	}
	if res.Cycle != nil {
		ev.CycleID = res.Cycle.ID.String()
		ev.Route = res.Cycle.Route
	}
	if res.Err != nil {
		ev.Message = res.Err.Error()
	}
	if res.TimedOut() {
		ev.Timeout = true
		ev.Message = MessageTimeout
	}
	return ev
}

func cycleEvent(name EventName, res poll.Result, payload any) Event {
	return Event{
		Name:    name,
		CycleID: res.Cycle.ID.String(),
		Route:   res.Cycle.Route,
		Data:    res.Data,
		Payload: payload,
	}
}

func startError(err error) error {
	if errors.Is(err, poll.ErrClosed) {
		return ErrEngineClosed
	}
	return err
}

// requestError wraps a failed one-shot request. Caller cancellation is returned as is.
func requestError(route string, err error) error {
	if transport.IsCanceled(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, route, err)
}

// rejected turns a non-success envelope of a one-shot request into a *ServerError.
func rejected(route string, env *Envelope, fallback string) error {
	msg := env.Message()
	if msg == "" {
		msg = fallback
	}
	return &ServerError{Route: route, Code: env.Code, Message: msg}
}

// newChallenge mints the nonce, hash and secure hash of a login or data flow.
func newChallenge() (hash, nonce, secureHash string, err error) {
	if nonce, err = secure.NewHash(); err != nil {
		return "", "", "", err
	}
	if hash, err = secure.NewHash(); err != nil {
		return "", "", "", err
	}
	return hash, nonce, secure.SecureHash(hash, nonce), nil
}
