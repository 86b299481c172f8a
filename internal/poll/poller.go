package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/signx/internal/transport"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval    = 2500 * time.Millisecond
	DefaultTimeout     = 2 * time.Minute
	DefaultTimeoutTick = 250 * time.Millisecond
)

// Outcome classifies a single attempt for observers.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeContinue
	OutcomeRejected
	OutcomeInvalid
	OutcomeTransport
	OutcomeTimeout
	OutcomeCanceled
)

var outcomeNames = [...]string{
	OutcomeSuccess:   "success",
	OutcomeContinue:  "continue",
	OutcomeRejected:  "rejected",
	OutcomeInvalid:   "invalid",
	OutcomeTransport: "transport_error",
	OutcomeTimeout:   "timeout",
	OutcomeCanceled:  "canceled",
}

// OutcomeCount is the number of outcomes; every Outcome is below it.
const OutcomeCount = len(outcomeNames)

func (o Outcome) String() string {
	if o < 0 || int(o) >= OutcomeCount {
		return "unknown"
	}
	return outcomeNames[o]
}

// Observer is notified of every attempt outcome. Implementations must be cheap and
// safe for concurrent use.
type Observer interface {
	ObserveAttempt(route string, outcome Outcome, latency time.Duration)
}

// Config holds poller defaults. Zero fields fall back to the package defaults.
type Config struct {
	Interval    time.Duration
	Timeout     time.Duration
	TimeoutTick time.Duration
}

// Option customizes a Poller.
type Option func(*Poller)

// WithClock replaces the wall clock, typically with clock.NewMock() in tests.
func WithClock(clk clock.Clock) Option {
	return func(p *Poller) {
		if clk != nil {
			p.clock = clk
		}
	}
}

// WithLogger sets the poller logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger.With().Str("component", "poller").Logger()
	}
}

// WithObserver attaches an attempt observer.
func WithObserver(o Observer) Option {
	return func(p *Poller) {
		p.observer = o
	}
}

// Poller runs poll cycles against a Transport. Cycles share a cancellation token that
// StopAll swaps for a fresh one, so a stop never pre-cancels later cycles.
type Poller struct {
	transport transport.Transport
	clock     clock.Clock
	logger    zerolog.Logger
	observer  Observer
	cfg       Config

	mu     sync.Mutex
	token  context.Context
	stop   context.CancelFunc
	cycles map[*Cycle]struct{}
	closed bool
	wg     sync.WaitGroup
}

type attemptResult struct {
	env *transport.Envelope
	err error
}

// New returns a Poller over t.
func New(t transport.Transport, cfg Config, opts ...Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TimeoutTick <= 0 {
		cfg.TimeoutTick = DefaultTimeoutTick
	}

	p := &Poller{
		transport: t,
		clock:     clock.New(),
		logger:    zerolog.Nop(),
		cfg:       cfg,
		cycles:    make(map[*Cycle]struct{}),
	}
	p.token, p.stop = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clock returns the clock cycles are measured on.
func (p *Poller) Clock() clock.Clock {
	return p.clock
}

// Start launches a cycle for spec and returns immediately. h is invoked at most once,
// from the cycle goroutine, unless the cycle is cancelled first.
func (p *Poller) Start(spec Spec, h Handler) (*Cycle, error) {
	if spec.Interval <= 0 {
		spec.Interval = p.cfg.Interval
	}
	if spec.Timeout <= 0 {
		spec.Timeout = p.cfg.Timeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(p.token)
	now := p.clock.Now()
	c := &Cycle{
		ID:       uuid.New(),
		Route:    spec.Route,
		Started:  now,
		Deadline: now.Add(spec.Timeout),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	p.cycles[c] = struct{}{}
	p.wg.Add(1)
	go p.run(c, spec, h)

	return c, nil
}

// StopAll cancels every live cycle and installs a fresh cancellation token. It returns
// the number of cycles it cancelled.
func (p *Poller) StopAll() int {
	p.mu.Lock()
	live := make([]*Cycle, 0, len(p.cycles))
	for c := range p.cycles {
		live = append(live, c)
	}
	stop := p.stop
	p.token, p.stop = context.WithCancel(context.Background())
	p.mu.Unlock()

	n := 0
	for _, c := range live {
		if c.Cancel() {
			n++
		}
	}
	stop()
	return n
}

// Active returns the number of cycles whose goroutine is still running.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cycles)
}

// Close cancels every cycle, refuses new ones and waits for cycle goroutines to exit.
// It must not be called from a Handler.
func (p *Poller) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.StopAll()
	p.wg.Wait()
}

func (p *Poller) run(c *Cycle, spec Spec, h Handler) {
	defer p.wg.Done()
	defer p.forget(c)
	defer close(c.done)
	defer c.cancel()

	log := p.logger.With().Str("route", spec.Route).Str("cycle", c.ID.String()).Logger()

	tick := p.cfg.TimeoutTick
	if limit := spec.Timeout / 4; limit > 0 && tick > limit {
		tick = limit
	}
	ticker := p.clock.Ticker(tick)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		actx, acancel := context.WithCancel(c.ctx)
		results := make(chan attemptResult, 1)
		began := p.clock.Now()
		go func() {
			env, err := p.transport.Post(actx, spec.Route, spec.Body)
			results <- attemptResult{env: env, err: err}
		}()

		var ar attemptResult
		for waiting := true; waiting; {
			select {
			case <-c.ctx.Done():
				acancel()
				p.observe(spec.Route, OutcomeCanceled, p.clock.Since(began))
				return
			case <-ticker.C:
				if p.clock.Since(c.Started) >= spec.Timeout {
					acancel()
					log.Warn().Int("attempt", attempt).Msg("poll cycle timed out")
					p.observe(spec.Route, OutcomeTimeout, p.clock.Since(began))
					p.finish(c, h, Result{Err: fmt.Errorf("%w after %s", ErrTimeout, spec.Timeout)})
					return
				}
			case ar = <-results:
				waiting = false
			}
		}
		acancel()
		if c.ctx.Err() != nil {
			p.observe(spec.Route, OutcomeCanceled, p.clock.Since(began))
			return
		}

		outcome, res := classify(spec, ar)
		p.observe(spec.Route, outcome, p.clock.Since(began))
		log.Debug().Int("attempt", attempt).Int("outcome", int(outcome)).Msg("poll attempt")
		if outcome != OutcomeContinue {
			if res.Err != nil {
				log.Warn().Err(res.Err).Int("attempt", attempt).Msg("poll cycle failed")
			}
			p.finish(c, h, res)
			return
		}

		wait := p.clock.Timer(spec.Interval)
		for waiting := true; waiting; {
			select {
			case <-c.ctx.Done():
				wait.Stop()
				return
			case <-ticker.C:
				if p.clock.Since(c.Started) >= spec.Timeout {
					wait.Stop()
					log.Warn().Int("attempt", attempt).Msg("poll cycle timed out")
					p.observe(spec.Route, OutcomeTimeout, 0)
					p.finish(c, h, Result{Err: fmt.Errorf("%w after %s", ErrTimeout, spec.Timeout)})
					return
				}
			case <-wait.C:
				waiting = false
			}
		}
	}
}

func classify(spec Spec, ar attemptResult) (Outcome, Result) {
	if ar.err != nil {
		return OutcomeTransport, Result{Err: fmt.Errorf("%w: %s: %w", ErrTransport, spec.Route, ar.err)}
	}
	env := ar.env
	if env == nil {
		return OutcomeTransport, Result{Err: fmt.Errorf("%w: %s: empty response", ErrTransport, spec.Route)}
	}
	if env.Continue() {
		return OutcomeContinue, Result{}
	}
	if !env.Success {
		msg := env.Message()
		if msg == "" {
			msg = "Polling failed"
		}
		return OutcomeRejected, Result{Err: &ServerError{Route: spec.Route, Code: env.Code, Message: msg}}
	}
	if spec.Decode == nil {
		return OutcomeSuccess, Result{Value: env.Data, Data: env.Data}
	}
	value, err := spec.Decode(env.Data)
	if err != nil {
		return OutcomeInvalid, Result{Err: err}
	}
	return OutcomeSuccess, Result{Value: value, Data: env.Data}
}

func (p *Poller) finish(c *Cycle, h Handler, res Result) {
	if c.ctx.Err() != nil || h == nil {
		return
	}
	res.Cycle = c
	h(res)
}

func (p *Poller) forget(c *Cycle) {
	p.mu.Lock()
	delete(p.cycles, c)
	p.mu.Unlock()
}

func (p *Poller) observe(route string, outcome Outcome, latency time.Duration) {
	if p.observer != nil {
		p.observer.ObserveAttempt(route, outcome, latency)
	}
}
