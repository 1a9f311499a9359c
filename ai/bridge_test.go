package ai

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sage-x-project/chatcore/chat"
	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/dispatch"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/sessionmgr"
	"github.com/sage-x-project/chatcore/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSender struct{}

func (noopSender) Send(ctx context.Context, remoteAddr string, frame []byte) error { return nil }

type fakeGenerator struct {
	reply string
	err   error
}

func (f fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func newTestChat(t *testing.T) *chat.Service {
	t.Helper()
	repo := memory.NewStore()
	keys, err := cryptoprim.GenerateKeyPair()
	require.NoError(t, err)
	sessions, err := sessionmgr.NewManager(repo, keys, time.Minute, logger.NewDefaultLogger())
	require.NoError(t, err)
	disp := dispatch.New(dispatch.DefaultConfig(), noopSender{}, sessions, logger.NewDefaultLogger())
	disp.Start()
	t.Cleanup(func() { disp.Close() })
	return chat.New(repo, sessions, disp, logger.NewDefaultLogger())
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestBridgePostsGeneratedReply(t *testing.T) {
	svc := newTestChat(t)
	login, err := svc.Login(context.Background(), "human@example.com", nil)
	require.NoError(t, err)
	room, err := svc.CreateRoom(context.Background(), login.User.ID, "ai-room", false)
	require.NoError(t, err)
	_, err = svc.PostMessage(context.Background(), login.User.ID, room.RoomID, "hi there", false)
	require.NoError(t, err)

	bridge := New(svc, fakeGenerator{reply: "hello human"}, 2, logger.NewDefaultLogger())
	bridge.Request(room.RoomID, login.User.ID, "")

	ok := waitFor(t, time.Second, func() bool {
		msgs, err := svc.ListMessages(context.Background(), room.RoomID, 10)
		return err == nil && len(msgs) == 2
	})
	require.True(t, ok, "ai reply should have been posted")

	msgs, err := svc.ListMessages(context.Background(), room.RoomID, 10)
	require.NoError(t, err)
	assert.Equal(t, "hello human", msgs[1].Content)
}

func TestBridgeSwallowsGeneratorFailure(t *testing.T) {
	svc := newTestChat(t)
	login, err := svc.Login(context.Background(), "human2@example.com", nil)
	require.NoError(t, err)
	room, err := svc.CreateRoom(context.Background(), login.User.ID, "ai-room-2", false)
	require.NoError(t, err)

	bridge := New(svc, NoneGenerator{}, 2, logger.NewDefaultLogger())
	bridge.Request(room.RoomID, login.User.ID, "")

	time.Sleep(100 * time.Millisecond)
	msgs, err := svc.ListMessages(context.Background(), room.RoomID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs, "a failed generation must not post any message")
}

func TestBridgeRejectsWhenSaturated(t *testing.T) {
	svc := newTestChat(t)
	login, err := svc.Login(context.Background(), "human3@example.com", nil)
	require.NoError(t, err)
	room, err := svc.CreateRoom(context.Background(), login.User.ID, "ai-room-3", false)
	require.NoError(t, err)

	block := make(chan struct{})
	var calls int32
	bridge := New(svc, blockingGenerator{unblock: block, calls: &calls}, 1, logger.NewDefaultLogger())
	bridge.Request(room.RoomID, login.User.ID, "")
	bridge.Request(room.RoomID, login.User.ID, "") // should be rejected, pool size 1

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) > 0 })
	close(block)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "the second request must be rejected while the pool is full")
}

type blockingGenerator struct {
	unblock chan struct{}
	calls   *int32
}

func (b blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(b.calls, 1)
	<-b.unblock
	return "", ErrNoGenerator
}
