// Package transport carries JSON request bodies to mediator routes and decodes the
// mediator's response envelope.
//
// # Architecture boundaries
//
// The package knows the envelope shape ({success, code, data}) but nothing about what a
// route means. Classifying envelopes (continue, reject, accept) belongs to the poller and
// the flow layer.
//
// # What this package must NOT do
//
//   - Retry requests.
//   - Interpret envelope payloads.
//   - Log request bodies (they carry secret nonces).
package transport
