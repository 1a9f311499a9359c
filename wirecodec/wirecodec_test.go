package wirecodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientHelloRoundTrip(t *testing.T) {
	der := []byte{0x01, 0x02, 0x03, 0x04}
	raw, err := EncodeClientHello(der)
	require.NoError(t, err)

	got, err := ParseClientHello(raw)
	require.NoError(t, err)
	assert.Equal(t, der, got)
}

func TestServerHelloRoundTrip(t *testing.T) {
	raw, err := EncodeServerHello("sess-1", []byte{0xAA}, []byte{0xBB}, []byte{0xCC}, "deadbeef")
	require.NoError(t, err)

	hello, ek, sig, pub, err := ParseServerHello(raw)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", hello.SessionID)
	assert.Equal(t, "deadbeef", hello.Fingerprint)
	assert.Equal(t, []byte{0xAA}, ek)
	assert.Equal(t, []byte{0xBB}, sig)
	assert.Equal(t, []byte{0xCC}, pub)
}

func TestSecureEnvelopeRoundTrip(t *testing.T) {
	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	ciphertext := []byte("pretend ciphertext and tag")

	raw, err := EncodeSecureEnvelope("sess-42", nonce, ciphertext)
	require.NoError(t, err)

	sessionID, n, ct, err := ParseSecureEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "sess-42", sessionID)
	assert.Equal(t, nonce, n)
	assert.Equal(t, ciphertext, ct)
}

func TestInnerPayloadRoundTrip(t *testing.T) {
	type loginData struct {
		Email string `json:"email"`
	}
	raw, err := EncodeInnerPayload("LOGIN", loginData{Email: "a@x"}, "m1")
	require.NoError(t, err)

	p, err := ParseInnerPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "LOGIN", p.Type)
	assert.Equal(t, "m1", p.MsgID)
	assert.Contains(t, string(p.Data), "a@x")
}

func TestInnerPayloadNoData(t *testing.T) {
	raw, err := EncodeInnerPayload("HELLO", nil, "")
	require.NoError(t, err)

	p, err := ParseInnerPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", p.Type)
	assert.Empty(t, p.MsgID)
}

func TestPeekType(t *testing.T) {
	raw, err := EncodeClientHello([]byte{0x01})
	require.NoError(t, err)

	kind, err := PeekType(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeSessionInit, kind)
}

func TestFrameTooLarge(t *testing.T) {
	huge := make([]byte, MaxFrameSize+1)
	_, err := EncodeSecureEnvelope("s", huge, huge)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestParseRejectsWrongType(t *testing.T) {
	raw, err := EncodeInnerPayload("HELLO", nil, "")
	require.NoError(t, err)
	// HELLO is an inner payload, not an outer SESSION_INIT frame.
	_, err = ParseClientHello(raw)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unrecognized") || err == ErrUnknownFrameType)
}
