package router

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sage-x-project/chatcore/ai"
	"github.com/sage-x-project/chatcore/chat"
	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/dispatch"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/sessionmgr"
	"github.com/sage-x-project/chatcore/storage/memory"
	"github.com/sage-x-project/chatcore/wirecodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingSender records every frame handed to it by session, so
// tests can decrypt and assert on what the server sent back.
type capturingSender struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func newCapturingSender() *capturingSender { return &capturingSender{frames: make(map[string][][]byte)} }

func (c *capturingSender) Send(ctx context.Context, remoteAddr string, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames[remoteAddr] = append(c.frames[remoteAddr], frame)
	return nil
}

func (c *capturingSender) last(addr string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	fs := c.frames[addr]
	if len(fs) == 0 {
		return nil
	}
	return fs[len(fs)-1]
}

func (c *capturingSender) count(addr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames[addr])
}

type testHarness struct {
	sessions *sessionmgr.Manager
	disp     *dispatch.Dispatcher
	chat     *chat.Service
	router   *Router
	sender   *capturingSender
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	repo := memory.NewStore()
	serverKeys, err := cryptoprim.GenerateKeyPair()
	require.NoError(t, err)
	log := logger.NewDefaultLogger()

	sessions, err := sessionmgr.NewManager(repo, serverKeys, time.Minute, log)
	require.NoError(t, err)
	sender := newCapturingSender()
	disp := dispatch.New(dispatch.Config{BaseRTO: time.Second, MaxRTO: 4 * time.Second, MaxAttempts: 5}, sender, sessions, log)
	disp.Start()
	t.Cleanup(func() { disp.Close() })

	chatSvc := chat.New(repo, sessions, disp, log)
	bridge := ai.New(chatSvc, ai.NoneGenerator{}, 2, log)
	r := New(sessions, disp, sender, chatSvc, bridge, log)

	return &testHarness{sessions: sessions, disp: disp, chat: chatSvc, router: r, sender: sender}
}

func (h *testHarness) handshake(t *testing.T, addr string) (sessionID string, key []byte) {
	t.Helper()
	clientKeys, err := cryptoprim.GenerateKeyPair()
	require.NoError(t, err)
	clientDER, err := cryptoprim.PublicKeyDER(clientKeys.Public)
	require.NoError(t, err)

	reply, err := h.sessions.Handshake(context.Background(), addr, clientDER)
	require.NoError(t, err)
	hello, encryptedKey, _, _, err := wirecodec.ParseServerHello(reply)
	require.NoError(t, err)
	key, err = cryptoprim.OAEPDecrypt(clientKeys.Private, encryptedKey)
	require.NoError(t, err)
	return hello.SessionID, key
}

func (h *testHarness) send(t *testing.T, addr, sessionID string, key []byte, kind string, data any, msgID string) {
	t.Helper()
	inner, err := wirecodec.EncodeInnerPayload(kind, data, msgID)
	require.NoError(t, err)
	nonce, err := cryptoprim.NewOutboundNonce(time.Now().UnixNano())
	require.NoError(t, err)
	ct, err := cryptoprim.Seal(key, nonce, inner)
	require.NoError(t, err)
	raw, err := wirecodec.EncodeSecureEnvelope(sessionID, nonce, ct)
	require.NoError(t, err)

	admitted, err := h.sessions.Admit(context.Background(), raw, addr)
	require.NoError(t, err)
	h.router.Route(context.Background(), admitted)
}

// decryptLast decrypts the most recent frame sent to addr under key.
func decryptLast(t *testing.T, sender *capturingSender, addr string, key []byte) *wirecodec.InnerPayload {
	t.Helper()
	frame := sender.last(addr)
	require.NotNil(t, frame)
	_, nonce, ciphertext, err := wirecodec.ParseSecureEnvelope(frame)
	require.NoError(t, err)
	plaintext, err := cryptoprim.Open(key, nonce, ciphertext)
	require.NoError(t, err)
	inner, err := wirecodec.ParseInnerPayload(plaintext)
	require.NoError(t, err)
	return inner
}

func waitForFrame(t *testing.T, sender *capturingSender, addr string, minCount int) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sender.count(addr) >= minCount {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return sender.count(addr) >= minCount
}

func TestHelloRepliesStatusImmediately(t *testing.T) {
	h := newHarness(t)
	addr := "127.0.0.1:2000"
	sessionID, key := h.handshake(t, addr)

	h.send(t, addr, sessionID, key, "HELLO", nil, "")

	require.True(t, waitForFrame(t, h.sender, addr, 1))
	inner := decryptLast(t, h.sender, addr, key)
	assert.Equal(t, "STATUS", inner.Type)
}

func TestLoginBindsUserAndRepliesWelcome(t *testing.T) {
	h := newHarness(t)
	addr := "127.0.0.1:2001"
	sessionID, key := h.handshake(t, addr)

	h.send(t, addr, sessionID, key, "LOGIN", map[string]string{"email": "router-user@example.com"}, "m1")

	require.True(t, waitForFrame(t, h.sender, addr, 2)) // ACK + WELCOME
	uid, ok := h.sessions.UserID(sessionID)
	require.True(t, ok)
	assert.NotZero(t, uid)

	var sawWelcome bool
	for i := 0; i < h.sender.count(addr); i++ {
		frame := h.sender.frames[addr][i]
		_, nonce, ct, err := wirecodec.ParseSecureEnvelope(frame)
		require.NoError(t, err)
		pt, err := cryptoprim.Open(key, nonce, ct)
		require.NoError(t, err)
		inner, err := wirecodec.ParseInnerPayload(pt)
		require.NoError(t, err)
		if inner.Type == "WELCOME" {
			sawWelcome = true
		}
	}
	assert.True(t, sawWelcome)
}

func TestCreateRoomRequiresLogin(t *testing.T) {
	h := newHarness(t)
	addr := "127.0.0.1:2002"
	sessionID, key := h.handshake(t, addr)

	h.send(t, addr, sessionID, key, "CREATE_ROOM", map[string]any{"name": "no-login-room"}, "")

	require.True(t, waitForFrame(t, h.sender, addr, 1))
	inner := decryptLast(t, h.sender, addr, key)
	assert.Equal(t, "UNAUTHORISED", inner.Type)
}

func TestCreateRoomAndPostMessageRoundtrip(t *testing.T) {
	h := newHarness(t)
	addr := "127.0.0.1:2003"
	sessionID, key := h.handshake(t, addr)
	h.send(t, addr, sessionID, key, "LOGIN", map[string]string{"email": "creator@example.com"}, "")
	require.True(t, waitForFrame(t, h.sender, addr, 1))

	h.send(t, addr, sessionID, key, "CREATE_ROOM", map[string]any{"name": "round-trip-room"}, "")
	require.True(t, waitForFrame(t, h.sender, addr, 2))

	var roomID string
	for i := 0; i < h.sender.count(addr); i++ {
		inner := func() *wirecodec.InnerPayload {
			frame := h.sender.frames[addr][i]
			_, nonce, ct, err := wirecodec.ParseSecureEnvelope(frame)
			require.NoError(t, err)
			pt, err := cryptoprim.Open(key, nonce, ct)
			require.NoError(t, err)
			p, err := wirecodec.ParseInnerPayload(pt)
			require.NoError(t, err)
			return p
		}()
		if inner.Type == "ROOM_CREATED" {
			var payload struct {
				Room struct {
					RoomID string `json:"room_id"`
				} `json:"room"`
			}
			require.NoError(t, json.Unmarshal(inner.Data, &payload))
			roomID = payload.Room.RoomID
		}
	}
	require.NotEmpty(t, roomID)

	h.send(t, addr, sessionID, key, "MESSAGE", map[string]string{"room_id": roomID, "content": "hi all"}, "")
	require.True(t, waitForFrame(t, h.sender, addr, 3))

	var sawMessage bool
	for i := 0; i < h.sender.count(addr); i++ {
		frame := h.sender.frames[addr][i]
		_, nonce, ct, err := wirecodec.ParseSecureEnvelope(frame)
		require.NoError(t, err)
		pt, err := cryptoprim.Open(key, nonce, ct)
		require.NoError(t, err)
		inner, err := wirecodec.ParseInnerPayload(pt)
		require.NoError(t, err)
		if inner.Type == "MESSAGE" {
			sawMessage = true
		}
	}
	assert.True(t, sawMessage, "author should receive the echoed broadcast")
}

func TestAckRemovesRetryRecord(t *testing.T) {
	h := newHarness(t)
	addr := "127.0.0.1:2004"
	sessionID, key := h.handshake(t, addr)
	h.send(t, addr, sessionID, key, "LOGIN", map[string]string{"email": "acker@example.com"}, "")
	require.True(t, waitForFrame(t, h.sender, addr, 1))

	h.send(t, addr, sessionID, key, "LIST_ROOMS", nil, "")
	require.True(t, waitForFrame(t, h.sender, addr, 2))

	var msgID string
	for i := 0; i < h.sender.count(addr); i++ {
		frame := h.sender.frames[addr][i]
		_, nonce, ct, err := wirecodec.ParseSecureEnvelope(frame)
		require.NoError(t, err)
		pt, err := cryptoprim.Open(key, nonce, ct)
		require.NoError(t, err)
		inner, err := wirecodec.ParseInnerPayload(pt)
		require.NoError(t, err)
		if inner.Type == "ROOM_LIST" {
			msgID = inner.MsgID
		}
	}
	require.NotEmpty(t, msgID)
	before := h.disp.QueueDepth()

	h.send(t, addr, sessionID, key, "ACK", map[string]string{"msg_id": msgID}, "")
	assert.Equal(t, before-1, h.disp.QueueDepth(), "acking ROOM_LIST must remove exactly its own record")
}
