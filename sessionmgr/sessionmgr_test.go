package sessionmgr

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sage-x-project/chatcore/chaterr"
	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/storage/memory"
	"github.com/sage-x-project/chatcore/wirecodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *cryptoprim.KeyPair) {
	t.Helper()
	serverKeys, err := cryptoprim.GenerateKeyPair()
	require.NoError(t, err)
	repo := memory.NewStore()
	m, err := NewManager(repo, serverKeys, time.Minute, logger.NewDefaultLogger())
	require.NoError(t, err)
	return m, serverKeys
}

func handshakeSession(t *testing.T, m *Manager) (sessionID string, sessionKey []byte) {
	t.Helper()
	clientKeys, err := cryptoprim.GenerateKeyPair()
	require.NoError(t, err)
	clientDER, err := cryptoprim.PublicKeyDER(clientKeys.Public)
	require.NoError(t, err)

	reply, err := m.Handshake(context.Background(), "127.0.0.1:1111", clientDER)
	require.NoError(t, err)

	hello, encryptedKey, signature, serverPubDER, err := wirecodec.ParseServerHello(reply)
	require.NoError(t, err)

	serverPub, err := cryptoprim.ParsePublicKeyDER(serverPubDER)
	require.NoError(t, err)

	key, err := cryptoprim.OAEPDecrypt(clientKeys.Private, encryptedKey)
	require.NoError(t, err)
	require.NoError(t, cryptoprim.PSSVerify(serverPub, key, signature))
	assert.Equal(t, cryptoprim.Fingerprint(serverPubDER), hello.Fingerprint)

	return hello.SessionID, key
}

func sealSecureMsg(t *testing.T, sessionID string, key []byte, inner []byte) []byte {
	t.Helper()
	nonce, err := cryptoprim.NewOutboundNonce(time.Now().UnixNano())
	require.NoError(t, err)
	ct, err := cryptoprim.Seal(key, nonce, inner)
	require.NoError(t, err)
	raw, err := wirecodec.EncodeSecureEnvelope(sessionID, nonce, ct)
	require.NoError(t, err)
	return raw
}

func TestHandshakeVerification(t *testing.T) {
	m, _ := newTestManager(t)
	sessionID, key := handshakeSession(t, m)
	assert.NotEmpty(t, sessionID)
	assert.Len(t, key, cryptoprim.AESKeySize)
}

func TestAdmitAcceptsFirstFrame(t *testing.T) {
	m, _ := newTestManager(t)
	sessionID, key := handshakeSession(t, m)

	inner, err := wirecodec.EncodeInnerPayload("HELLO", nil, "m1")
	require.NoError(t, err)
	raw := sealSecureMsg(t, sessionID, key, inner)

	admitted, err := m.Admit(context.Background(), raw, "127.0.0.1:1111")
	require.NoError(t, err)
	assert.Equal(t, sessionID, admitted.SessionID)
	assert.Equal(t, "HELLO", admitted.Inner.Type)
	assert.Equal(t, "m1", admitted.Inner.MsgID)
}

func TestAdmitRejectsReplay(t *testing.T) {
	m, _ := newTestManager(t)
	sessionID, key := handshakeSession(t, m)

	inner, err := wirecodec.EncodeInnerPayload("HELLO", nil, "m1")
	require.NoError(t, err)
	raw := sealSecureMsg(t, sessionID, key, inner)

	_, err = m.Admit(context.Background(), raw, "127.0.0.1:1111")
	require.NoError(t, err)

	_, err = m.Admit(context.Background(), raw, "127.0.0.1:1111")
	require.Error(t, err)
	assert.True(t, chaterr.Is(err, chaterr.KindReplay))
}

func TestAdmitRejectsTamperedCiphertext(t *testing.T) {
	m, _ := newTestManager(t)
	sessionID, key := handshakeSession(t, m)

	nonce, err := cryptoprim.NewOutboundNonce(time.Now().UnixNano())
	require.NoError(t, err)
	inner, err := wirecodec.EncodeInnerPayload("HELLO", nil, "")
	require.NoError(t, err)
	ct, err := cryptoprim.Seal(key, nonce, inner)
	require.NoError(t, err)
	ct[0] ^= 0xFF

	raw, err := wirecodec.EncodeSecureEnvelope(sessionID, nonce, ct)
	require.NoError(t, err)

	_, err = m.Admit(context.Background(), raw, "127.0.0.1:1111")
	require.Error(t, err)
	assert.True(t, chaterr.Is(err, chaterr.KindCrypto))
}

func TestAdmitUnknownSessionReturnsNoSessionError(t *testing.T) {
	m, _ := newTestManager(t)
	nonce, err := cryptoprim.NewOutboundNonce(time.Now().UnixNano())
	require.NoError(t, err)
	raw, err := wirecodec.EncodeSecureEnvelope("nonexistent", nonce, []byte("junk-ciphertext-and-tag"))
	require.NoError(t, err)

	_, err = m.Admit(context.Background(), raw, "127.0.0.1:1111")
	require.Error(t, err)
	var noSess *NoSessionError
	require.ErrorAs(t, err, &noSess)
}

func TestBindAndClearUser(t *testing.T) {
	m, _ := newTestManager(t)
	sessionID, _ := handshakeSession(t, m)

	require.NoError(t, m.BindUser(context.Background(), sessionID, 42))
	uid, ok := m.UserID(sessionID)
	require.True(t, ok)
	assert.Equal(t, int64(42), uid)

	m.ClearUser(sessionID)
	_, ok = m.UserID(sessionID)
	assert.False(t, ok)
}

func TestMergeTransfersUserBinding(t *testing.T) {
	m, _ := newTestManager(t)
	oldSessionID, key := handshakeSession(t, m)
	require.NoError(t, m.BindUser(context.Background(), oldSessionID, 7))

	newSessionID, _ := handshakeSession(t, m)

	err := m.Merge(context.Background(), newSessionID, oldSessionID, hex.EncodeToString(key))
	require.NoError(t, err)

	uid, ok := m.UserID(newSessionID)
	require.True(t, ok)
	assert.Equal(t, int64(7), uid)

	_, ok = m.RemoteAddr(oldSessionID)
	assert.False(t, ok)
}

func TestMergeRejectsWrongKey(t *testing.T) {
	m, _ := newTestManager(t)
	oldSessionID, _ := handshakeSession(t, m)
	require.NoError(t, m.BindUser(context.Background(), oldSessionID, 7))

	newSessionID, _ := handshakeSession(t, m)

	wrongKey := make([]byte, cryptoprim.AESKeySize)
	err := m.Merge(context.Background(), newSessionID, oldSessionID, hex.EncodeToString(wrongKey))
	require.Error(t, err)
	assert.True(t, chaterr.Is(err, chaterr.KindAuth))
}
