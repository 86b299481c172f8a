// Package secure implements the hashing, secure-hash derivation, JSON encryption and
// random-source primitives used by signx flows.
//
// # Architecture boundaries
//
// Every function here is pure apart from reading crypto/rand. Nothing is cached and no
// secret outlives the call that produced it; ownership of nonces and keys stays with the
// caller.
//
// # What this package must NOT do
//
//   - Import signx or any sibling internal package.
//   - Log or persist secrets.
package secure
