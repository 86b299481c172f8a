package flows

import (
	"fmt"
	"sort"

	"github.com/MrEthical07/signx/internal/secure"
)

// MaxTransactions bounds a single create or add submission.
const MaxTransactions = 99

// Transaction is one caller-supplied transaction body. Sequence orders the batch;
// nil sorts after every declared value.
type Transaction struct {
	TxBodyHex string
	Sequence  *int
}

// TransactInput is the caller's signing request.
type TransactInput struct {
	Address      string
	DID          string
	PubKey       string
	Timestamp    string
	Transactions []Transaction
}

// Item is a canonicalised transaction as sent to the mediator.
type Item struct {
	Hash      string `json:"hash"`
	TxBodyHex string `json:"txBodyHex"`
	Timestamp string `json:"timestamp"`
	Sequence  int    `json:"sequence"`
}

// ValidateTransact checks in without touching the network.
func ValidateTransact(in TransactInput) error {
	if in.Address == "" || in.DID == "" || in.PubKey == "" {
		return ErrAccountDetailsMissing
	}
	if in.Timestamp == "" {
		return ErrTimestampMissing
	}
	if len(in.Transactions) == 0 {
		return ErrNoTransactions
	}
	if len(in.Transactions) > MaxTransactions {
		return ErrTooManyTransactions
	}
	for i, tx := range in.Transactions {
		if tx.TxBodyHex == "" {
			return fmt.Errorf("transaction %d: %w", i, ErrTransactionBodyMissing)
		}
	}
	return nil
}

// Resequence returns the batch ordered by ascending declared sequence. Undeclared
// sequences go last and ties keep their input order. The input slice is not modified.
func Resequence(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Sequence, out[j].Sequence
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}

// PrepareItems validates in, re-sequences its transactions 1..N and computes each
// item hash.
func PrepareItems(in TransactInput) ([]Item, error) {
	if err := ValidateTransact(in); err != nil {
		return nil, err
	}
	ordered := Resequence(in.Transactions)
	items := make([]Item, len(ordered))
	for i, tx := range ordered {
		hash, err := secure.HashTransaction(secure.TransactionHashInput{
			Address:   in.Address,
			DID:       in.DID,
			PubKey:    in.PubKey,
			Timestamp: in.Timestamp,
			TxBodyHex: tx.TxBodyHex,
		})
		if err != nil {
			return nil, fmt.Errorf("hash transaction %d: %w", i+1, err)
		}
		items[i] = Item{
			Hash:      hash,
			TxBodyHex: tx.TxBodyHex,
			Timestamp: in.Timestamp,
			Sequence:  i + 1,
		}
	}
	return items, nil
}
