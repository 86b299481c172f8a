package signx

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/signx/internal/secure"
)

// Network is the chain network a flow targets.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Devnet  Network = "devnet"
)

// Valid reports whether n is a known network.
func (n Network) Valid() bool {
	switch n {
	case Mainnet, Testnet, Devnet:
		return true
	default:
		return false
	}
}

// Payload types carried in deeplinks.
const (
	TypeLogin         = "SIGN_X_LOGIN"
	TypeMatrixLogin   = "SIGN_X_MATRIX_LOGIN"
	TypeData          = "SIGN_X_DATA"
	TypeTransact      = "SIGN_X_TRANSACT"
	TypeCleanDeeplink = "SIGN_X_CLEAN_DEEPLINK"
)

// deadlineLayout matches JavaScript's Date.toISOString.
const deadlineLayout = "2006-01-02T15:04:05.000Z07:00"

func formatDeadline(t time.Time) string {
	return t.UTC().Format(deadlineLayout)
}

/*
====================================
OPTIONS
====================================
*/

// LoginOptions overrides polling for one login. Zero fields use the engine config.
type LoginOptions struct {
	PollingInterval time.Duration
	Timeout         time.Duration
}

// MatrixLoginOptions overrides polling for one matrix login.
type MatrixLoginOptions struct {
	PollingInterval time.Duration
	Timeout         time.Duration
}

// DataPassOptions describes one encrypted data exchange. Data must marshal to JSON.
type DataPassOptions struct {
	Data            any
	DataType        string
	PollingInterval time.Duration
	Timeout         time.Duration
}

// Transaction is one transaction body to sign. Sequence orders it within its batch;
// nil sorts after every declared sequence.
type Transaction struct {
	TxBodyHex string `json:"txBodyHex"`
	Sequence  *int   `json:"sequence,omitempty"`
}

// TransactRequest is a batch of 1..99 transactions for one account.
type TransactRequest struct {
	Address      string        `json:"address"`
	DID          string        `json:"did"`
	PubKey       string        `json:"pubkey"`
	Timestamp    string        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// StopOptions controls StopPolling. FailEvent is emitted with Message only when both
// are set. KeepSession leaves the transact session in place.
type StopOptions struct {
	Message     string
	FailEvent   EventName
	KeepSession bool
}

/*
====================================
SYNCHRONOUS RESULTS
====================================
*/

// LoginData is what the caller renders as a deeplink or QR code for a login.
type LoginData struct {
	Hash       string  `json:"hash"`
	SecureHash string  `json:"secureHash"`
	Type       string  `json:"type"`
	Sitename   string  `json:"sitename"`
	Timeout    string  `json:"timeout"`
	Network    Network `json:"network"`
	Matrix     bool    `json:"matrix"`
	Version    int     `json:"version"`
}

// MatrixLoginData is LoginData for a matrix login.
type MatrixLoginData struct {
	Hash       string  `json:"hash"`
	SecureHash string  `json:"secureHash"`
	Type       string  `json:"type"`
	Sitename   string  `json:"sitename"`
	Timeout    string  `json:"timeout"`
	Network    Network `json:"network"`
	Version    int     `json:"version"`
}

// DataPassData describes a registered data exchange. Key decrypts the payload and is
// only ever handed to the caller.
type DataPassData struct {
	Hash       string  `json:"hash"`
	SecureHash string  `json:"secureHash"`
	Key        string  `json:"key"`
	Type       string  `json:"type"`
	DataType   string  `json:"dataType"`
	Sitename   string  `json:"sitename"`
	Timeout    string  `json:"timeout"`
	Network    Network `json:"network"`
	Version    int     `json:"version"`
}

// ActiveTransaction is the transaction a session currently waits on.
type ActiveTransaction struct {
	Hash     string `json:"hash"`
	Sequence int    `json:"sequence,omitempty"`
}

// TransactData is returned by Transact. Added is true when the batch joined the
// running session; in that case no new deeplink is needed unless ShowQR is set.
type TransactData struct {
	Hash              string             `json:"hash"`
	SessionHash       string             `json:"sessionHash,omitempty"`
	Type              string             `json:"type"`
	Sitename          string             `json:"sitename"`
	Network           Network            `json:"network"`
	Version           int                `json:"version"`
	Timeout           string             `json:"timeout,omitempty"`
	Added             bool               `json:"added,omitempty"`
	ShowQR            bool               `json:"showQR,omitempty"`
	ActiveTransaction *ActiveTransaction `json:"activeTransaction,omitempty"`
}

/*
====================================
EVENT PAYLOADS
====================================
*/

// LoginResult is the Payload of SIGN_X_LOGIN_SUCCESS.
type LoginResult struct {
	Address string
	PubKey  string
	DID     string
}

// MatrixLoginResult is the Payload of SIGN_X_MATRIX_LOGIN_SUCCESS.
type MatrixLoginResult struct {
	AccessToken string
}

// DataResult is the Payload of SIGN_X_DATA_SUCCESS.
type DataResult struct {
	Response json.RawMessage
}

// Decrypt decodes a response the device encrypted with the exchange key into out.
func (r DataResult) Decrypt(key string, out any) error {
	var blob string
	if err := json.Unmarshal(r.Response, &blob); err != nil {
		return errors.New("data response is not an encrypted string")
	}
	return secure.DecryptJSON(blob, key, out)
}

// TransactionResult is the Payload of SIGN_X_TRANSACT_SUCCESS.
type TransactionResult struct {
	TransactionHash string
	Sequence        int
	Next            *ActiveTransaction
}

// SessionEvent is the Payload of the session lifecycle events.
type SessionEvent struct {
	SessionHash string
	Sequence    int
	Active      *ActiveTransaction
}

// SessionInfo is a read-only view of the transact session. The secret nonce is never
// exposed.
type SessionInfo struct {
	SessionHash       string
	Sequence          int
	ActiveTransaction string
	Polling           bool
}

func (s SessionInfo) String() string {
	if s.SessionHash == "" {
		return "no session"
	}
	return s.SessionHash[:min(12, len(s.SessionHash))] + "#" + strconv.Itoa(s.Sequence)
}
