package secure

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Digest returns the lowercase hex SHA-256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SecureHash binds a public hash to a private nonce: sha256hex(hash || nonce).
// Only the holder of nonce can reproduce the result for a given hash.
func SecureHash(hash, nonce string) string {
	return Digest([]byte(hash + nonce))
}

// TransactionHashInput is the canonical content a transaction hash commits to.
// Field order is the sorted key order and must not change.
type TransactionHashInput struct {
	Address   string `json:"address"`
	DID       string `json:"did"`
	PubKey    string `json:"pubkey"`
	Timestamp string `json:"timestamp"`
	TxBodyHex string `json:"txBodyHex"`
}

// HashTransaction returns the digest of the canonical JSON form of in: keys sorted,
// no insignificant whitespace, no HTML escaping.
func HashTransaction(in TransactionHashInput) (string, error) {
	canonical, err := CanonicalJSON(in)
	if err != nil {
		return "", err
	}
	return Digest(canonical), nil
}

// CanonicalJSON encodes v compactly without HTML escaping and without the trailing
// newline json.Encoder appends. U+2028 and U+2029 are written raw, as JSON.stringify
// writes them, so the bytes match what the wallet hashes.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators rewrites the \u2028 and \u2029 escapes encoding/json always
// emits. Escape pairs are consumed whole so an escaped backslash followed by "u2028"
// is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if b[i+1] == 'u' && i+5 < len(b) && string(b[i+2:i+5]) == "202" && (b[i+5] == '8' || b[i+5] == '9') {
			if b[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
