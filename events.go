package signx

import (
	"io"
	"time"

	"github.com/MrEthical07/signx/internal/notify"
	"github.com/redis/go-redis/v9"
)

// EventName identifies an event kind.
type EventName = notify.Name

const (
	EventLoginSuccess       EventName = "SIGN_X_LOGIN_SUCCESS"
	EventLoginError         EventName = "SIGN_X_LOGIN_ERROR"
	EventMatrixLoginSuccess EventName = "SIGN_X_MATRIX_LOGIN_SUCCESS"
	EventMatrixLoginError   EventName = "SIGN_X_MATRIX_LOGIN_ERROR"
	EventDataSuccess        EventName = "SIGN_X_DATA_SUCCESS"
	EventDataError          EventName = "SIGN_X_DATA_ERROR"
	EventTransactSuccess    EventName = "SIGN_X_TRANSACT_SUCCESS"
	EventTransactError      EventName = "SIGN_X_TRANSACT_ERROR"

	EventSessionStarted        EventName = "SIGN_X_TRANSACT_SESSION_STARTED"
	EventSessionNewTransaction EventName = "SIGN_X_TRANSACT_SESSION_NEW_TRANSACTION"
	EventSessionEnded          EventName = "SIGN_X_TRANSACT_SESSION_ENDED"
)

// MessageTimeout is the Message of failure events caused by a cycle timeout.
const MessageTimeout = "TIMEOUT"

// Event is delivered to the EventSink in emission order.
//
//	Name      which flow step this is
//	CycleID   poll cycle that produced it, empty for synchronous steps
//	Data      the mediator's data object as received
//	Payload   decoded form: LoginResult, MatrixLoginResult, DataResult,
//	          TransactionResult or SessionEvent
//	Err       set on failure events; Timeout marks ErrPollTimeout
type Event = notify.Event

// EventSink receives events from the engine's dispatcher goroutine.
type EventSink = notify.Sink

// NoOpSink drops events.
type NoOpSink = notify.NoOpSink

// SinkFunc adapts a function to EventSink.
type SinkFunc = notify.SinkFunc

// MultiSink fans events out to several sinks.
type MultiSink = notify.MultiSink

// ChannelSink buffers events in a channel read through Events().
type ChannelSink = notify.ChannelSink

// JSONWriterSink writes one JSON object per event line.
type JSONWriterSink = notify.JSONWriterSink

// RedisSink publishes events as JSON on a Redis channel.
type RedisSink = notify.RedisSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return notify.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return notify.NewJSONWriterSink(w)
}

// NewRedisSink returns a sink publishing to channel with a per-publish timeout.
func NewRedisSink(client redis.UniversalClient, channel string, timeout time.Duration) *RedisSink {
	return notify.NewRedisSink(client, channel, timeout)
}
