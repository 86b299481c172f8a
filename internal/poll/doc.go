// Package poll implements the bounded-lifetime repeated-request engine behind every
// signx flow.
//
// A [Cycle] issues one request at a time against a single route. Each attempt is
// classified as continue (the mediator's 418 sentinel), reject, transport failure or
// success; only continue schedules another attempt. A timeout tracker runs on its own
// ticker from the cycle's start, so a hung attempt cannot stretch the cycle past its
// budget.
//
// # Exactly-once resolution
//
// A cycle resolves at most once. The poller never calls a handler for a cancelled cycle,
// and handlers must [Cycle.Claim] before acting so that a stop racing with a resolution
// produces either the stop or the resolution, never both.
//
// # What this package must NOT do
//
//   - Interpret flow-specific payloads (decoding is injected through [Spec.Decode]).
//   - Emit application events or touch session state.
//   - Read the wall clock directly; all timing goes through the injected clock.
package poll
