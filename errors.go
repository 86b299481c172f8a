package signx

import (
	"errors"

	"github.com/MrEthical07/signx/internal/flows"
	"github.com/MrEthical07/signx/internal/poll"
)

// Input validation. Every error below matches ErrInvalidInput with errors.Is and is
// returned before any request is sent.
var (
	ErrInvalidInput           = flows.ErrInvalidInput
	ErrAccountDetailsMissing  = flows.ErrAccountDetailsMissing
	ErrTimestampMissing       = flows.ErrTimestampMissing
	ErrNoTransactions         = flows.ErrNoTransactions
	ErrTooManyTransactions    = flows.ErrTooManyTransactions
	ErrTransactionBodyMissing = flows.ErrTransactionBodyMissing
	ErrDataTypeMissing        = flows.ErrDataTypeMissing
	ErrDataMissing            = flows.ErrDataMissing
)

// Remote outcomes, returned by Transact and DataPass and carried by failure events.
var (
	// ErrTransport wraps network failures and undecodable responses.
	ErrTransport = poll.ErrTransport
	// ErrServerRejected matches every *ServerError.
	ErrServerRejected = poll.ErrServerRejected
	// ErrShapeValidation matches every *ShapeError.
	ErrShapeValidation = poll.ErrShapeValidation
	// ErrPollTimeout is carried by failure events of cycles that ran out of time.
	ErrPollTimeout = poll.ErrTimeout
)

// Lifecycle.
var (
	ErrEngineClosed   = errors.New("engine closed")
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrSessionSuperseded is returned by Transact when StopPolling or a newer session
	// replaced the session while its create or add request was in flight.
	ErrSessionSuperseded = errors.New("transact session superseded")
)

// ServerError is a non-success envelope that is not the continue sentinel.
type ServerError = poll.ServerError

// ShapeError is a success envelope whose payload lacks a field the route requires.
type ShapeError = poll.ShapeError
