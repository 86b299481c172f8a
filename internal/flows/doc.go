// Package flows holds the pure parts of every Engine operation: input validation,
// transaction canonicalisation and re-sequencing, request bodies, and decoding of the
// mediator's success payloads per route family.
//
// # Architecture boundaries
//
// Functions here take values and return values. The Engine owns the session state,
// the poller and the event dispatcher; flows only tells it what to send and what a
// response means.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import signx (to avoid import cycles).
//   - Perform I/O.
package flows
