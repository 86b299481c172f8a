// Package internal groups the building blocks private to signx.
//
// # Sub-packages
//
//   - flows: input validation, transaction ordering, request bodies and payload decoding
//   - mediatortest: scripted in-process mediator for tests
//   - notify: event type, sinks and the async dispatcher
//   - poll: cancellable polling cycles with exactly-once outcomes
//   - secure: hashes, random identifiers and payload encryption
//   - transport: envelope codec and the HTTP transport
//
// # What this package must NOT do
//
//   - Export types that appear in the public signx API except through aliases.
//   - Be imported by any package outside the signx module.
package internal
