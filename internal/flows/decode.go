package flows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrEthical07/signx/internal/poll"
)

// ActiveTransaction identifies the transaction a session is currently waiting on.
type ActiveTransaction struct {
	Hash     string `json:"hash"`
	Sequence *int   `json:"sequence,omitempty"`
}

// LoginPayload is the account the approving device logged in with.
type LoginPayload struct {
	Address string          `json:"address"`
	PubKey  string          `json:"pubKey"`
	DID     string          `json:"did"`
	Raw     json.RawMessage `json:"-"`
}

// MatrixLoginPayload carries the matrix credentials of a matrix login.
type MatrixLoginPayload struct {
	AccessToken string          `json:"accessToken"`
	Raw         json.RawMessage `json:"-"`
}

// DataResponsePayload is the device's answer to a data exchange.
type DataResponsePayload struct {
	Response json.RawMessage `json:"response"`
	Raw      json.RawMessage `json:"-"`
}

// TransactionResult is a signed and broadcast transaction, plus the next active
// transaction when the mediator already knows it.
type TransactionResult struct {
	Code            int
	TransactionHash string
	Active          *ActiveTransaction
	Raw             json.RawMessage
}

// SessionStep is the answer of the next route. A nil Active ends the session.
type SessionStep struct {
	Active *ActiveTransaction
}

// SessionCreated is the create route answer.
type SessionCreated struct {
	Active ActiveTransaction
}

// Addition is the add route answer.
type Addition struct {
	ShowQR bool
	Active *ActiveTransaction
}

// result is the mediator's data object. Data holds the route payload.
type result struct {
	Success           *bool              `json:"success"`
	Message           string             `json:"message"`
	Data              json.RawMessage    `json:"data"`
	ActiveTransaction *ActiveTransaction `json:"activeTransaction"`
	ShowQR            bool               `json:"showQR"`
}

// Decoder adapts a typed decoder to the poller.
func Decoder[T any](f func(json.RawMessage) (T, error)) poll.Decoder {
	return func(data json.RawMessage) (any, error) {
		return f(data)
	}
}

func parseResult(route string, data json.RawMessage) (result, error) {
	var r result
	if isNull(data) {
		return r, nil
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, &poll.ShapeError{Route: route, Reason: fmt.Sprintf("malformed payload: %v", err)}
	}
	if r.Success != nil && !*r.Success {
		return r, &poll.ServerError{Route: route, Message: declineMessage(r)}
	}
	return r, nil
}

func declineMessage(r result) string {
	var inner struct {
		Message string `json:"message"`
	}
	if !isNull(r.Data) && json.Unmarshal(r.Data, &inner) == nil && inner.Message != "" {
		return inner.Message
	}
	if r.Message != "" {
		return r.Message
	}
	if s := strings.TrimSpace(string(r.Data)); s != "" && s != "null" {
		return strings.Trim(s, `"`)
	}
	return "request declined"
}

func decodeInner(route string, r result, out any) error {
	if isNull(r.Data) {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return &poll.ShapeError{Route: route, Reason: fmt.Sprintf("malformed payload: %v", err)}
	}
	return nil
}

// DecodeLogin requires address, pubKey and did.
func DecodeLogin(data json.RawMessage) (LoginPayload, error) {
	var p LoginPayload
	r, err := parseResult(RouteLoginFetch, data)
	if err != nil {
		return p, err
	}
	if err := decodeInner(RouteLoginFetch, r, &p); err != nil {
		return p, err
	}
	if p.Address == "" || p.PubKey == "" || p.DID == "" {
		return p, &poll.ShapeError{Route: RouteLoginFetch, Reason: "Account details missing"}
	}
	p.Raw = r.Data
	return p, nil
}

// DecodeMatrixLogin requires accessToken.
func DecodeMatrixLogin(data json.RawMessage) (MatrixLoginPayload, error) {
	var p MatrixLoginPayload
	r, err := parseResult(RouteMatrixLoginFetch, data)
	if err != nil {
		return p, err
	}
	if err := decodeInner(RouteMatrixLoginFetch, r, &p); err != nil {
		return p, err
	}
	if p.AccessToken == "" {
		return p, &poll.ShapeError{Route: RouteMatrixLoginFetch, Reason: "Matrix access token missing"}
	}
	p.Raw = r.Data
	return p, nil
}

// DecodeDataResponse requires a non-empty response.
func DecodeDataResponse(data json.RawMessage) (DataResponsePayload, error) {
	var p DataResponsePayload
	r, err := parseResult(RouteDataResponse, data)
	if err != nil {
		return p, err
	}
	if err := decodeInner(RouteDataResponse, r, &p); err != nil {
		return p, err
	}
	if isNull(p.Response) || string(bytes.TrimSpace(p.Response)) == `""` {
		return p, &poll.ShapeError{Route: RouteDataResponse, Reason: "Data response missing"}
	}
	p.Raw = r.Data
	return p, nil
}

// DecodeTransactionResult requires code 0 and a transaction hash.
func DecodeTransactionResult(data json.RawMessage) (TransactionResult, error) {
	var out TransactionResult
	r, err := parseResult(RouteTransactResponse, data)
	if err != nil {
		return out, err
	}
	var inner struct {
		Code            *int   `json:"code"`
		TransactionHash string `json:"transactionHash"`
	}
	if err := decodeInner(RouteTransactResponse, r, &inner); err != nil {
		return out, err
	}
	if inner.Code == nil || *inner.Code != 0 || inner.TransactionHash == "" {
		return out, &poll.ShapeError{Route: RouteTransactResponse, Reason: "Transaction failed, no success code"}
	}
	out.Code = *inner.Code
	out.TransactionHash = inner.TransactionHash
	out.Active = activeOrNil(r.ActiveTransaction)
	out.Raw = r.Data
	return out, nil
}

// DecodeSessionStep reads the next active transaction, if any.
func DecodeSessionStep(data json.RawMessage) (SessionStep, error) {
	r, err := parseResult(RouteTransactNext, data)
	if err != nil {
		return SessionStep{}, err
	}
	return SessionStep{Active: activeOrNil(r.ActiveTransaction)}, nil
}

// DecodeSessionCreated requires the first active transaction hash.
func DecodeSessionCreated(data json.RawMessage) (SessionCreated, error) {
	r, err := parseResult(RouteTransactCreate, data)
	if err != nil {
		return SessionCreated{}, err
	}
	active := activeOrNil(r.ActiveTransaction)
	if active == nil {
		return SessionCreated{}, &poll.ShapeError{Route: RouteTransactCreate, Reason: "Active transaction missing"}
	}
	return SessionCreated{Active: *active}, nil
}

// DecodeAddition reads showQR and the reported active transaction.
func DecodeAddition(data json.RawMessage) (Addition, error) {
	r, err := parseResult(RouteTransactAdd, data)
	if err != nil {
		return Addition{}, err
	}
	return Addition{ShowQR: r.ShowQR, Active: activeOrNil(r.ActiveTransaction)}, nil
}

func activeOrNil(a *ActiveTransaction) *ActiveTransaction {
	if a == nil || a.Hash == "" {
		return nil
	}
	return a
}

func isNull(b json.RawMessage) bool {
	s := bytes.TrimSpace(b)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}
