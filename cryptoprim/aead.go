package cryptoprim

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrCrypto wraps all decrypt/verify failures at the AEAD and RSA
// boundary. Handlers must never reply to a peer on this error: doing
// so would create a decryption oracle (see spec §4.3 admission step 3
// and §7 CryptoError).
var ErrCrypto = errors.New("cryptoprim: crypto error")

const (
	// AESKeySize is the size in bytes of a session's AES-256 key.
	AESKeySize = 32
	// NonceSize is the size in bytes of an AES-GCM nonce.
	NonceSize = 12
)

// NewSessionKey returns a fresh random 32-byte AES-256 key.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM under key and nonce,
// returning ciphertext with the 16-byte authentication tag appended.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("cryptoprim: bad nonce size %d", len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts ciphertext (plaintext‖tag) with
// AES-256-GCM under key and nonce. Returns ErrCrypto on tag mismatch.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size %d", ErrCrypto, len(nonce))
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}

// NewOutboundNonce builds a nonce for an outbound frame: 8 bytes
// big-endian nanosecond timestamp concatenated with 4 bytes of
// cryptographic randomness (spec §4.2).
func NewOutboundNonce(nowUnixNano int64) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	binary.BigEndian.PutUint64(nonce[:8], uint64(nowUnixNano))
	if _, err := io.ReadFull(rand.Reader, nonce[8:]); err != nil {
		return nil, fmt.Errorf("generate nonce randomness: %w", err)
	}
	return nonce, nil
}
