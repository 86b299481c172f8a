package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	signx "github.com/MrEthical07/signx"
	promexport "github.com/MrEthical07/signx/metrics/export/prometheus"
)

var (
	endpoint     string
	sitename     string
	network      string
	scheme       string
	interval     time.Duration
	timeout      time.Duration
	logLevel     string
	redisAddr    string
	redisChannel string
	metricsAddr  string

	engine  *signx.Engine
	events  *signx.ChannelSink
	logger  zerolog.Logger
	closers []func()
)

func Execute() error {
	root := &cobra.Command{
		Use:           "signx",
		Short:         "Drive SignX login, data and transaction flows from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&endpoint, "endpoint", envOr("SIGNX_ENDPOINT", ""), "mediator base URL")
	root.PersistentFlags().StringVar(&sitename, "sitename", envOr("SIGNX_SITENAME", "signx-cli"), "name shown on the approving device")
	root.PersistentFlags().StringVar(&network, "network", "mainnet", "mainnet, testnet or devnet")
	root.PersistentFlags().StringVar(&scheme, "scheme", signx.DefaultDeeplinkScheme, "deeplink scheme")
	root.PersistentFlags().DurationVar(&interval, "interval", 0, "poll interval (default 2.5s)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 0, "poll cycle timeout (default 2m)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "zerolog level")
	root.PersistentFlags().StringVar(&redisAddr, "redis", "", "also publish events to this Redis address")
	root.PersistentFlags().StringVar(&redisChannel, "redis-channel", "signx:events", "Redis channel for events")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(loginCmd(), dataCmd(), transactCmd(), deeplinkCmd(), hashCmd())
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

// setup builds the engine for a flow command.
func setup(cmd *cobra.Command) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	cfg := signx.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Sitename = sitename
	cfg.Network = signx.Network(strings.ToLower(network))
	cfg.DeeplinkScheme = scheme
	if interval > 0 {
		cfg.Polling.Interval = interval
	}
	if timeout > 0 {
		cfg.Polling.Timeout = timeout
	}
	cfg.Metrics.Enabled = metricsAddr != ""
	cfg.Metrics.EnableLatencyHistograms = metricsAddr != ""

	events = signx.NewChannelSink(64)
	sinks := signx.MultiSink{signx.NewJSONWriterSink(cmd.OutOrStdout()), events}
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		closers = append(closers, func() { _ = client.Close() })
		sinks = append(sinks, signx.NewRedisSink(client, redisChannel, 0))
	}

	engine, err = signx.New().
		WithConfig(cfg).
		WithEventSink(sinks).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	closers = append([]func(){engine.Close}, closers...)

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promexport.NewPrometheusExporter(engine).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		closers = append(closers, func() { _ = srv.Close() })
	}
	return nil
}

func teardown() {
	for _, c := range closers {
		c()
	}
	closers = nil
}

// await blocks until done accepts an event or the command is interrupted. An
// interrupt stops polling and emits failEvent.
func await(cmd *cobra.Command, failEvent signx.EventName, done func(signx.Event) bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case ev := <-events.Events():
			if done(ev) {
				if ev.Err != nil {
					return ev.Err
				}
				return nil
			}
		case <-ctx.Done():
			engine.StopPolling(signx.StopOptions{Message: "interrupted", FailEvent: failEvent})
			return context.Canceled
		}
	}
}

func printDeeplink(cmd *cobra.Command, data any) error {
	link, err := engine.Deeplink(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), link)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
