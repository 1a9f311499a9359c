package chat

import (
	"context"
	"testing"

	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct{ ids map[int64][]string }

func (f *fakeSessions) SessionsForUser(userID int64) []string { return f.ids[userID] }

type fakeDispatcher struct{ enqueued []string }

func (f *fakeDispatcher) Enqueue(ctx context.Context, sessionID, kind string, data any) (string, error) {
	f.enqueued = append(f.enqueued, sessionID+":"+kind)
	return "msg-1", nil
}

func newTestService(t *testing.T) (*Service, *fakeDispatcher) {
	t.Helper()
	repo := memory.NewStore()
	disp := &fakeDispatcher{}
	svc := &Service{repo: repo, sessions: &fakeSessions{ids: map[int64][]string{}}, dispatcher: disp, log: logger.NewDefaultLogger()}
	return svc, disp
}

func TestLoginCreatesPasswordlessUser(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Login(context.Background(), "a@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, LoginWelcome, res.Outcome)
	assert.Equal(t, "a@example.com", res.User.Email)
}

func TestLoginRequiresPasswordWhenSet(t *testing.T) {
	svc, _ := newTestService(t)
	pw := "hunter2"
	_, err := svc.Login(context.Background(), "b@example.com", &pw)
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), "b@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, LoginNeedsPassword, res.Outcome)

	wrong := "nope"
	res, err = svc.Login(context.Background(), "b@example.com", &wrong)
	require.NoError(t, err)
	assert.Equal(t, LoginUnauthorised, res.Outcome)

	res, err = svc.Login(context.Background(), "b@example.com", &pw)
	require.NoError(t, err)
	assert.Equal(t, LoginWelcome, res.Outcome)
}

func TestCreateRoomRejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	login, _ := svc.Login(context.Background(), "c@example.com", nil)

	_, err := svc.CreateRoom(context.Background(), login.User.ID, "general", false)
	require.NoError(t, err)

	_, err = svc.CreateRoom(context.Background(), login.User.ID, "general", false)
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestJoinLeaveIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	creator, _ := svc.Login(context.Background(), "creator@example.com", nil)
	joiner, _ := svc.Login(context.Background(), "joiner@example.com", nil)

	room, err := svc.CreateRoom(context.Background(), creator.User.ID, "room-a", false)
	require.NoError(t, err)

	res, err := svc.JoinRoom(context.Background(), joiner.User.ID, room.RoomID)
	require.NoError(t, err)
	assert.True(t, res.Added)

	res, err = svc.JoinRoom(context.Background(), joiner.User.ID, room.RoomID)
	require.NoError(t, err)
	assert.False(t, res.Added, "re-joining must be a no-op")

	leaveRes, err := svc.LeaveRoom(context.Background(), joiner.User.ID, room.RoomID)
	require.NoError(t, err)
	assert.True(t, leaveRes.Removed)

	leaveRes, err = svc.LeaveRoom(context.Background(), joiner.User.ID, room.RoomID)
	require.NoError(t, err)
	assert.False(t, leaveRes.Removed, "leaving twice must be a no-op")
}

func TestLeaveTransfersAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	creator, _ := svc.Login(context.Background(), "creator2@example.com", nil)
	joiner, _ := svc.Login(context.Background(), "joiner2@example.com", nil)

	room, err := svc.CreateRoom(context.Background(), creator.User.ID, "room-b", false)
	require.NoError(t, err)
	_, err = svc.JoinRoom(context.Background(), joiner.User.ID, room.RoomID)
	require.NoError(t, err)

	_, err = svc.LeaveRoom(context.Background(), creator.User.ID, room.RoomID)
	require.NoError(t, err)

	members, err := svc.ListMembers(context.Background(), room.RoomID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].IsAdmin, "remaining member must inherit admin")
}

func TestPostMessageBroadcastsToMembers(t *testing.T) {
	svc, disp := newTestService(t)
	author, _ := svc.Login(context.Background(), "author@example.com", nil)
	other, _ := svc.Login(context.Background(), "other@example.com", nil)

	room, err := svc.CreateRoom(context.Background(), author.User.ID, "room-c", false)
	require.NoError(t, err)
	_, err = svc.JoinRoom(context.Background(), other.User.ID, room.RoomID)
	require.NoError(t, err)

	fs := svc.sessions.(*fakeSessions)
	fs.ids[author.User.ID] = []string{"sess-author"}
	fs.ids[other.User.ID] = []string{"sess-other"}

	_, err = svc.PostMessage(context.Background(), author.User.ID, room.RoomID, "hello", false)
	require.NoError(t, err)

	assert.Contains(t, disp.enqueued, "sess-author:MESSAGE")
	assert.Contains(t, disp.enqueued, "sess-other:MESSAGE")
}
