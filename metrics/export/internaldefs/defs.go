package internaldefs

import (
	signx "github.com/MrEthical07/signx"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   signx.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   signx.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: signx.MetricLoginStarted, Name: "signx_login_started_total", Help: "Login flows started."},
	{ID: signx.MetricLoginSuccess, Name: "signx_login_success_total", Help: "Logins approved on a device."},
	{ID: signx.MetricLoginFailure, Name: "signx_login_failure_total", Help: "Logins that failed or timed out."},
	{ID: signx.MetricMatrixLoginStarted, Name: "signx_matrix_login_started_total", Help: "Matrix login flows started."},
	{ID: signx.MetricMatrixLoginSuccess, Name: "signx_matrix_login_success_total", Help: "Matrix logins approved on a device."},
	{ID: signx.MetricMatrixLoginFailure, Name: "signx_matrix_login_failure_total", Help: "Matrix logins that failed or timed out."},
	{ID: signx.MetricDataPassStarted, Name: "signx_data_pass_started_total", Help: "Data exchanges registered with the mediator."},
	{ID: signx.MetricDataPassSuccess, Name: "signx_data_pass_success_total", Help: "Data exchanges answered by a device."},
	{ID: signx.MetricDataPassFailure, Name: "signx_data_pass_failure_total", Help: "Data exchanges that failed or timed out."},
	{ID: signx.MetricSessionCreated, Name: "signx_transact_session_created_total", Help: "Transact sessions created."},
	{ID: signx.MetricSessionEnded, Name: "signx_transact_session_ended_total", Help: "Transact sessions ended."},
	{ID: signx.MetricTransactionsAdded, Name: "signx_transactions_added_total", Help: "Transactions added to running sessions."},
	{ID: signx.MetricTransactSuccess, Name: "signx_transact_success_total", Help: "Transactions signed and broadcast."},
	{ID: signx.MetricTransactFailure, Name: "signx_transact_failure_total", Help: "Transactions that failed or timed out."},
	{ID: signx.MetricPollAttempt, Name: "signx_poll_attempt_total", Help: "Completed poll requests."},
	{ID: signx.MetricPollContinue, Name: "signx_poll_continue_total", Help: "Poll requests answered with the continue code."},
	{ID: signx.MetricPollRejected, Name: "signx_poll_rejected_total", Help: "Poll requests answered with a rejection."},
	{ID: signx.MetricPollInvalid, Name: "signx_poll_invalid_total", Help: "Poll answers failing shape validation."},
	{ID: signx.MetricPollTransportError, Name: "signx_poll_transport_error_total", Help: "Poll requests that failed in transport."},
	{ID: signx.MetricPollTimeout, Name: "signx_poll_timeout_total", Help: "Poll cycles that ran out of time."},
	{ID: signx.MetricPollCanceled, Name: "signx_poll_canceled_total", Help: "Poll cycles cancelled by StopPolling or Close."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: signx.MetricPollAttemptLatency, Name: "signx_poll_attempt_latency_seconds", Help: "Latency of single poll requests."},
}

// EventsDroppedName is the counter of events lost to dispatcher backpressure.
const (
	EventsDroppedName = "signx_events_dropped_total"
	EventsDroppedHelp = "Events dropped because the dispatcher buffer was full."
)

// RouteAttemptsName counts poll attempts per route and outcome. Its labels are
// RouteLabel and OutcomeLabel.
const (
	RouteAttemptsName = "signx_poll_route_attempts_total"
	RouteAttemptsHelp = "Poll attempts by mediator route and outcome."
	RouteLabel        = "route"
	OutcomeLabel      = "outcome"
)

// HistogramBounds are the upper bounds of the engine buckets, in seconds.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds without the +Inf bucket.
var HistogramBoundValues = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HistogramBoundSuffix is the instrument-name form of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
