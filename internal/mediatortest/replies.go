package mediatortest

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/signx/internal/transport"
)

// Active is the activeTransaction object of a mediator answer. A nil Sequence is
// omitted.
type Active struct {
	Hash     string `json:"hash"`
	Sequence *int   `json:"sequence,omitempty"`
}

// Seq returns a pointer to n.
func Seq(n int) *int {
	return &n
}

// Result is the mediator data object wrapped by a success envelope.
type Result struct {
	Success           *bool   `json:"success,omitempty"`
	Message           string  `json:"message,omitempty"`
	Data              any     `json:"data,omitempty"`
	ActiveTransaction *Active `json:"activeTransaction,omitempty"`
	ShowQR            bool    `json:"showQR,omitempty"`
}

// Continue is the keep-polling answer. It is sent as HTTP 418, like the mediator does.
func Continue() Reply {
	return Reply{
		Status:   http.StatusTeapot,
		Envelope: transport.Envelope{Code: transport.CodeContinue},
	}
}

// OK wraps res in a success envelope.
func OK(res Result) Reply {
	return Reply{Envelope: transport.Envelope{Success: true, Data: mustJSON(res)}}
}

// Payload answers a poll with data as the inner payload.
func Payload(data any) Reply {
	return OK(Result{Data: data})
}

// Declined answers a poll with a device refusal carrying msg.
func Declined(msg string) Reply {
	no := false
	return OK(Result{Success: &no, Data: map[string]string{"message": msg}})
}

// Fail is a non-success envelope with code and msg.
func Fail(code int, msg string) Reply {
	return Reply{
		Status:   http.StatusBadRequest,
		Envelope: transport.Envelope{Code: code, Data: mustJSON(map[string]string{"message": msg})},
	}
}

// Signed answers the response route with a broadcast transaction and, optionally, the
// next active transaction.
func Signed(txHash string, next *Active) Reply {
	return OK(Result{
		Data:              map[string]any{"code": 0, "transactionHash": txHash},
		ActiveTransaction: next,
	})
}

// Step answers the next route. A nil next ends the session.
func Step(next *Active) Reply {
	return OK(Result{ActiveTransaction: next})
}

// Created answers the create route.
func Created(active Active) Reply {
	return OK(Result{ActiveTransaction: &active})
}

// Added answers the add route.
func Added(showQR bool, active *Active) Reply {
	return OK(Result{ShowQR: showQR, ActiveTransaction: active})
}

// Hold parks the request until it is aborted.
func Hold() Reply {
	return Reply{Hold: true}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
