package cryptoprim

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// OAEPDecrypt decrypts ciphertext wrapped for pub using RSA-OAEP with
// SHA-256 for both the hash and the MGF1 mask generation function.
func OAEPDecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: oaep decrypt: %v", ErrCrypto, err)
	}
	return pt, nil
}

// OAEPEncrypt wraps plaintext (normally a 32-byte session key) to pub
// using RSA-OAEP with SHA-256.
func OAEPEncrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("oaep encrypt: %w", err)
	}
	return ct, nil
}

// PSSSign signs message (the raw session key bytes, not a digest) with
// RSA-PSS, SHA-256, salt length 32.
func PSSSign(priv *rsa.PrivateKey, message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: 32,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("pss sign: %w", err)
	}
	return sig, nil
}

// PSSVerify verifies a signature produced by PSSSign.
func PSSVerify(pub *rsa.PublicKey, message, signature []byte) error {
	hash := sha256.Sum256(message)
	err := rsa.VerifyPSS(pub, crypto.SHA256, hash[:], signature, &rsa.PSSOptions{
		SaltLength: 32,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return ErrInvalidSignature
	}
	return nil
}
