package signx

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/signx/internal/poll"
)

// Config holds every engine setting. Obtain defaults through New and override fields
// with Builder.WithConfig.
type Config struct {
	// Endpoint is the mediator base URL, e.g. https://signx.devnet.ixo.earth.
	Endpoint string
	// Sitename names the relying application to the approving device.
	Sitename       string
	Network        Network
	DeeplinkScheme string
	Polling        PollingConfig
	Transport      TransportConfig
	Signing        SigningConfig
	Events         EventsConfig
	Metrics        MetricsConfig
}

/*
====================================
POLLING CONFIG
====================================
*/

// PollingConfig sets cycle defaults. Login, MatrixLogin and DataPass may override
// Interval and Timeout per call.
type PollingConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	// TimeoutTick is how often a cycle checks its deadline. It is capped at a quarter
	// of the cycle timeout.
	TimeoutTick time.Duration
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig configures the built-in HTTP transport. It is ignored when a
// transport is supplied with Builder.WithTransport.
type TransportConfig struct {
	RequestTimeout time.Duration
	UserAgent      string
}

/*
====================================
SIGNING CONFIG
====================================
*/

// SigningConfig enables JWT request assertions on every mediator request.
type SigningConfig struct {
	Enabled       bool
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	TTL           time.Duration
	KeyID         string
	Audience      string
}

/*
====================================
EVENTS / METRICS CONFIG
====================================
*/

// EventsConfig controls the event dispatcher buffer.
type EventsConfig struct {
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the attempt latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Network:        Mainnet,
		DeeplinkScheme: DefaultDeeplinkScheme,
		Polling: PollingConfig{
			Interval:    poll.DefaultInterval,
			Timeout:     poll.DefaultTimeout,
			TimeoutTick: poll.DefaultTimeoutTick,
		},
		Transport: TransportConfig{
			RequestTimeout: 30 * time.Second,
			UserAgent:      "signx-go",
		},
		Signing: SigningConfig{
			SigningMethod: "ed25519",
			TTL:           time.Minute,
		},
		Events: EventsConfig{
			BufferSize: 64,
		},
	}
}

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Signing.PrivateKey = cloneBytes(cfg.Signing.PrivateKey)
	out.Signing.PublicKey = cloneBytes(cfg.Signing.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting. An empty Endpoint is allowed here and
// rejected by Build unless a custom transport is supplied.
func (c *Config) Validate() error {
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return fmt.Errorf("Endpoint is invalid: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("Endpoint must be an http or https URL")
		}
		if u.Host == "" {
			return errors.New("Endpoint must include a host")
		}
	}
	if strings.TrimSpace(c.Sitename) == "" {
		return errors.New("Sitename is required")
	}
	if !c.Network.Valid() {
		return fmt.Errorf("unsupported Network %q", c.Network)
	}
	if !validScheme(c.DeeplinkScheme) {
		return fmt.Errorf("invalid DeeplinkScheme %q", c.DeeplinkScheme)
	}

	// Polling
	if c.Polling.Interval <= 0 {
		return errors.New("Polling Interval must be > 0")
	}
	if c.Polling.Timeout <= 0 {
		return errors.New("Polling Timeout must be > 0")
	}
	if c.Polling.TimeoutTick < 0 {
		return errors.New("Polling TimeoutTick must be >= 0")
	}

	// Transport
	if c.Transport.RequestTimeout < 0 {
		return errors.New("Transport RequestTimeout must be >= 0")
	}

	// Signing
	if c.Signing.Enabled {
		switch c.Signing.SigningMethod {
		case "ed25519":
			if len(c.Signing.PrivateKey) == 0 {
				return errors.New("ed25519 requires PrivateKey")
			}
		case "hs256":
			if len(c.Signing.PrivateKey) < 32 {
				return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
			}
		default:
			return errors.New("unsupported Signing method")
		}
		if c.Signing.TTL <= 0 {
			return errors.New("Signing TTL must be > 0")
		}
	}

	// Events
	if c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func validScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
