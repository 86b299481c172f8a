package flows

import "errors"

// ErrInvalidInput matches every input validation error below.
var ErrInvalidInput = errors.New("invalid input")

var (
	ErrAccountDetailsMissing  = invalid("account details missing")
	ErrTimestampMissing       = invalid("timestamp missing")
	ErrNoTransactions         = invalid("no transactions found")
	ErrTooManyTransactions    = invalid("maximum 99 transactions allowed")
	ErrTransactionBodyMissing = invalid("transaction body missing")
	ErrDataTypeMissing        = invalid("data type missing")
	ErrDataMissing            = invalid("data missing")
)

type inputError struct {
	msg string
}

func invalid(msg string) error {
	return &inputError{msg: msg}
}

func (e *inputError) Error() string {
	return e.msg
}

func (e *inputError) Is(target error) bool {
	return target == ErrInvalidInput
}
