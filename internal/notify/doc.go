// Package notify delivers engine events to caller-supplied sinks.
//
// # Components
//
//   - [Sink] is the interface for event consumers (channel, JSON writer, func, fan-out, Redis, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full / block-if-full semantics.
//     A single delivery goroutine keeps events in emission order.
//   - [Event] is the record of one flow outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit. That belongs to the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on flow logic.
//   - Import signx or any sibling internal package.
//   - Perform network I/O beyond what a Sink does.
package notify
