package cryptoprim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAEADRoundTrip(t *testing.T) {
	key, err := NewSessionKey()
	require.NoError(t, err)

	nonce, err := NewOutboundNonce(time.Now().UnixNano())
	require.NoError(t, err)
	require.Len(t, nonce, NonceSize)

	plaintext := []byte(`{"type":"HELLO","data":{}}`)

	ct, err := Seal(key, nonce, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ct)

	pt, err := Open(key, nonce, ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestAEADTamperDetection(t *testing.T) {
	key, err := NewSessionKey()
	require.NoError(t, err)
	nonce, err := NewOutboundNonce(time.Now().UnixNano())
	require.NoError(t, err)

	ct, err := Seal(key, nonce, []byte("hello"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0xFF

	_, err = Open(key, nonce, tampered)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestHandshakeVerification(t *testing.T) {
	serverKP, err := GenerateKeyPair()
	require.NoError(t, err)

	clientKP, err := GenerateKeyPair()
	require.NoError(t, err)
	clientPubDER, err := PublicKeyDER(clientKP.Public)
	require.NoError(t, err)

	sessionKey, err := NewSessionKey()
	require.NoError(t, err)

	// server wraps the raw key to the client's public key and signs
	// the raw key bytes with its own private key.
	clientPub, err := ParsePublicKeyDER(clientPubDER)
	require.NoError(t, err)

	wrapped, err := OAEPEncrypt(clientPub, sessionKey)
	require.NoError(t, err)
	sig, err := PSSSign(serverKP.Private, sessionKey)
	require.NoError(t, err)

	serverPubDER, err := PublicKeyDER(serverKP.Public)
	require.NoError(t, err)
	fp := Fingerprint(serverPubDER)

	// client side: decrypt with its private key, verify the signature
	// against the server's advertised public key and fingerprint.
	recovered, err := OAEPDecrypt(clientKP.Private, wrapped)
	require.NoError(t, err)
	assert.Equal(t, sessionKey, recovered)

	recoveredServerPub, err := ParsePublicKeyDER(serverPubDER)
	require.NoError(t, err)
	err = PSSVerify(recoveredServerPub, recovered, sig)
	assert.NoError(t, err)

	assert.Equal(t, fp, Fingerprint(serverPubDER))
}

func TestPSSVerifyRejectsTamperedSignature(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("session key bytes")
	sig, err := PSSSign(kp.Private, msg)
	require.NoError(t, err)

	sig[0] ^= 0xFF
	err = PSSVerify(kp.Public, msg, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
