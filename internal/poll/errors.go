package poll

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports that a cycle exceeded its time budget.
	ErrTimeout = errors.New("polling timed out")
	// ErrTransport wraps network and decoding failures of a single attempt.
	ErrTransport = errors.New("transport failure")
	// ErrServerRejected matches every *ServerError.
	ErrServerRejected = errors.New("server rejected request")
	// ErrShapeValidation matches every *ShapeError.
	ErrShapeValidation = errors.New("response shape validation failed")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("poller closed")
)

// ServerError is a non-success envelope whose code is not the continue sentinel.
type ServerError struct {
	Route   string
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: server returned code %d", e.Route, e.Code)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServerRejected
}

// ShapeError is a success envelope whose payload lacks fields the route requires.
type ShapeError struct {
	Route  string
	Reason string
}

func (e *ShapeError) Error() string {
	return e.Reason
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeValidation
}
