package secure

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const keySize = 32

var (
	ErrInvalidKey         = errors.New("invalid encryption key: must be 64 hex characters (256 bits)")
	ErrCiphertextTooShort = errors.New("invalid encrypted data: too short")
	ErrInvalidPadding     = errors.New("invalid encrypted data: bad padding")
)

// EncryptJSON marshals v and encrypts it with AES-256-CBC under keyHex. The result is
// base64(IV || ciphertext) with a random 16 byte IV and PKCS#7 padding.
func EncryptJSON(v any, keyHex string) (string, error) {
	key, err := parseKey(keyHex)
	if err != nil {
		return "", err
	}
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	iv, err := RandomBytes(aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptJSON reverses EncryptJSON and unmarshals the plaintext into out.
func DecryptJSON(blob, keyHex string, out any) error {
	key, err := parseKey(keyHex)
	if err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("decryption failed: %w", err)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return ErrCiphertextTooShort
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("decryption failed: %w", err)
	}
	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return fmt.Errorf("decryption failed: %w", err)
	}
	return nil
}

func parseKey(keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != keySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrInvalidPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrInvalidPadding
		}
	}
	return b[:len(b)-n], nil
}
