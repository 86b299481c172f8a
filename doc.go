// Package signx is a client for the SignX mediator. It asks a mobile wallet to approve
// logins, data exchanges and chained transaction signing, and reports each outcome as
// an [Event] on the configured [EventSink].
//
// Every operation follows the same shape: the call registers a request with the
// mediator (or only derives its identifiers), returns the data the caller renders as a
// deeplink or QR code, and starts a polling cycle in the background. The cycle ends in
// exactly one success or failure event unless [Engine.StopPolling] silences it.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// signx is the public surface. It exposes [Engine], [Builder], [Config], event names
// and value types (LoginData, TransactData, SessionInfo, MetricsSnapshot). Polling,
// request bodies, payload decoding, hashing and the event dispatcher live under
// internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Expose the session nonce or any secret derived from it.
//   - Perform I/O during construction (Build only allocates and starts the dispatcher).
//   - Import any sub-package that re-imports signx (no import cycles).
//
// # Transact sessions
//
// At most one transact session exists per Engine. Transact joins the running session
// when it can and creates a new one otherwise; the session then follows the wallet
// from one signed transaction to the next until the mediator reports no more work,
// a failure occurs, or StopPolling ends it.
package signx
