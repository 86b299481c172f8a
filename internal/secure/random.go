package secure

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// HashSize is the number of random bytes behind every generated hash, nonce and key.
const HashSize = 32

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("random size must be > 0")
	}
	out := make([]byte, n)
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// RandomHex returns n random bytes encoded as lowercase hex (2n characters).
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewHash returns a fresh HashSize-byte random hex string. Used for public hashes,
// secret nonces and one-time encryption keys alike.
func NewHash() (string, error) {
	return RandomHex(HashSize)
}
