package secure

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestDigestKnownVectors(t *testing.T) {
	cases := map[string]string{
		"":    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"abc": "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
	}
	for in, want := range cases {
		if got := Digest([]byte(in)); got != want {
			t.Fatalf("Digest(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSecureHashIsDigestOfConcatenation(t *testing.T) {
	if got, want := SecureHash("ab", "c"), Digest([]byte("abc")); got != want {
		t.Fatalf("SecureHash mismatch: got %s want %s", got, want)
	}
}

func hexString(n int) *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		b := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "bytes")
		return hex.EncodeToString(b)
	})
}

func TestSecureHashProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hash := hexString(HashSize).Draw(t, "hash")
		nonce := hexString(HashSize).Draw(t, "nonce")
		other := hexString(HashSize).Draw(t, "other")

		first := SecureHash(hash, nonce)
		if first != SecureHash(hash, nonce) {
			t.Fatalf("secure hash not deterministic")
		}
		if len(first) != 64 {
			t.Fatalf("expected 64 hex chars, got %d", len(first))
		}
		if other != nonce && SecureHash(hash, other) == first {
			t.Fatalf("nonce change did not change secure hash")
		}
		if other != hash && SecureHash(other, nonce) == first {
			t.Fatalf("hash change did not change secure hash")
		}
	})
}

func TestRandomHex(t *testing.T) {
	a, err := NewHash()
	if err != nil {
		t.Fatalf("NewHash failed: %v", err)
	}
	b, err := NewHash()
	if err != nil {
		t.Fatalf("NewHash failed: %v", err)
	}
	if len(a) != 2*HashSize {
		t.Fatalf("expected %d chars, got %d", 2*HashSize, len(a))
	}
	if a == b {
		t.Fatalf("expected distinct random hashes")
	}
	if _, err := RandomHex(0); err == nil {
		t.Fatalf("expected error for zero size")
	}
}

func TestCanonicalTransactionJSON(t *testing.T) {
	in := TransactionHashInput{
		Address:   "ixo1abc",
		DID:       "did:ixo:1",
		PubKey:    "pk",
		Timestamp: "2024-01-01T00:00:00.000Z",
		TxBodyHex: "0a<b>&",
	}
	got, err := CanonicalJSON(in)
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	want := `{"address":"ixo1abc","did":"did:ixo:1","pubkey":"pk","timestamp":"2024-01-01T00:00:00.000Z","txBodyHex":"0a<b>&"}`
	if string(got) != want {
		t.Fatalf("canonical json mismatch:\n got %s\nwant %s", got, want)
	}

	hash, err := HashTransaction(in)
	if err != nil {
		t.Fatalf("HashTransaction failed: %v", err)
	}
	if hash != Digest([]byte(want)) {
		t.Fatalf("transaction hash does not match digest of canonical form")
	}
}

func TestCanonicalJSONWritesLineSeparatorsRaw(t *testing.T) {
	in := TransactionHashInput{
		Address:   "ixo1\u2028abc",
		DID:       "did:ixo:\u2029",
		PubKey:    `pk\u2028`,
		Timestamp: "2024-01-01T00:00:00.000Z",
		TxBodyHex: "0a",
	}
	got, err := CanonicalJSON(in)
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	want := "{\"address\":\"ixo1\u2028abc\",\"did\":\"did:ixo:\u2029\",\"pubkey\":\"pk\\\\u2028\",\"timestamp\":\"2024-01-01T00:00:00.000Z\",\"txBodyHex\":\"0a\"}"
	if string(got) != want {
		t.Fatalf("canonical json mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := NewHash()
	if err != nil {
		t.Fatalf("NewHash failed: %v", err)
	}
	in := map[string]any{"name": "alice", "n": float64(7)}

	blob1, err := EncryptJSON(in, key)
	if err != nil {
		t.Fatalf("EncryptJSON failed: %v", err)
	}
	blob2, err := EncryptJSON(in, key)
	if err != nil {
		t.Fatalf("EncryptJSON failed: %v", err)
	}
	if blob1 == blob2 {
		t.Fatalf("expected random IV to produce distinct ciphertexts")
	}

	var out map[string]any
	if err := DecryptJSON(blob1, key, &out); err != nil {
		t.Fatalf("DecryptJSON failed: %v", err)
	}
	if out["name"] != "alice" || out["n"] != float64(7) {
		t.Fatalf("unexpected round trip result: %#v", out)
	}
}

func TestEncryptRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "zz", strings.Repeat("ab", 16)} {
		if _, err := EncryptJSON("x", key); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestDecryptRejectsShortInput(t *testing.T) {
	key, _ := NewHash()
	if err := DecryptJSON("AAAA", key, new(any)); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}
