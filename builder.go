package signx

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/signx/internal/notify"
	"github.com/MrEthical07/signx/internal/poll"
	"github.com/MrEthical07/signx/internal/transport"
	"github.com/MrEthical07/signx/jwt"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Transport posts a JSON body to a mediator route and returns the decoded envelope.
// Implementations must honor ctx cancellation.
type Transport = transport.Transport

// Envelope is the mediator response wrapper {success, code, data}.
type Envelope = transport.Envelope

// CodeContinue is the envelope code meaning "keep polling", and "unknown session" on
// the add route.
const CodeContinue = transport.CodeContinue

// RequestSigner produces the bearer assertion attached to each mediator request.
type RequestSigner = transport.Signer

// Builder assembles an Engine. A Builder can build exactly once.
type Builder struct {
	config Config

	transport  Transport
	httpClient *http.Client
	signer     RequestSigner
	sink       EventSink
	clock      clock.Clock
	logger     *zerolog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied, including key material, and
// is validated by Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTransport replaces the HTTP transport. Endpoint, Transport and Signing config
// are then unused.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithHTTPClient sets the client used by the built-in HTTP transport. Its Timeout is
// left untouched.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithRequestSigner signs every request of the built-in HTTP transport with s. It
// takes precedence over the Signing config.
func (b *Builder) WithRequestSigner(s RequestSigner) *Builder {
	b.signer = s
	return b
}

// WithEventSink sets where flow events are delivered. Without a sink events are
// dropped.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithClock injects the clock poll cycles run on, typically clock.NewMock() in tests.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clock = clk
	return b
}

// WithLogger sets the engine logger. The default is zerolog.Nop().
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the poll attempt latency histogram. It requires
// metrics to be enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the event dispatcher.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}
	clk := b.clock
	if clk == nil {
		clk = clock.New()
	}

	// -------- TRANSPORT --------
	tr := b.transport
	if tr == nil {
		if cfg.Endpoint == "" {
			return nil, errors.New("Endpoint required without a custom transport")
		}
		h := transport.NewHTTP(cfg.Endpoint, cfg.Transport.RequestTimeout)
		h.UserAgent = cfg.Transport.UserAgent
		if b.httpClient != nil {
			h.HTTP = b.httpClient
		}
		signer := b.signer
		if signer == nil && cfg.Signing.Enabled {
			s, err := jwt.NewSigner(jwt.Config{
				TTL:           cfg.Signing.TTL,
				SigningMethod: jwt.SigningMethod(cfg.Signing.SigningMethod),
				PrivateKey:    cfg.Signing.PrivateKey,
				PublicKey:     cfg.Signing.PublicKey,
				Issuer:        cfg.Sitename,
				Audience:      signingAudience(cfg),
				KeyID:         cfg.Signing.KeyID,
			})
			if err != nil {
				return nil, err
			}
			signer = s
		}
		h.Signer = signer
		tr = h
	}

	// -------- METRICS / POLLER / EVENTS --------
	metrics := NewMetrics(cfg.Metrics)
	poller := poll.New(tr, poll.Config{
		Interval:    cfg.Polling.Interval,
		Timeout:     cfg.Polling.Timeout,
		TimeoutTick: cfg.Polling.TimeoutTick,
	},
		poll.WithClock(clk),
		poll.WithLogger(logger),
		poll.WithObserver(metrics),
	)
	events := notify.NewDispatcher(notify.Config{
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
	}, b.sink)

	b.built = true
	return &Engine{
		config:    cfg,
		transport: tr,
		poller:    poller,
		events:    events,
		metrics:   metrics,
		clock:     clk,
		logger:    logger.With().Str("component", "signx").Str("sitename", cfg.Sitename).Logger(),
	}, nil
}

func signingAudience(cfg Config) string {
	if cfg.Signing.Audience != "" {
		return cfg.Signing.Audience
	}
	return cfg.Endpoint
}
