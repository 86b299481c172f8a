// Package mediatortest runs a scripted SignX mediator over httptest.
//
// Each route answers from a queue of replies; the last reply repeats once the queue is
// drained. Every request is recorded with its decoded body and bearer token so tests
// can assert what the engine sent.
package mediatortest
