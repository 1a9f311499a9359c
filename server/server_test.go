package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sage-x-project/chatcore/ai"
	"github.com/sage-x-project/chatcore/chat"
	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/dispatch"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/router"
	"github.com/sage-x-project/chatcore/sessionmgr"
	"github.com/sage-x-project/chatcore/storage/memory"
	"github.com/sage-x-project/chatcore/wirecodec"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *sessionmgr.Manager) {
	t.Helper()
	repo := memory.NewStore()
	serverKeys, err := cryptoprim.GenerateKeyPair()
	require.NoError(t, err)
	log := logger.NewDefaultLogger()

	sessions, err := sessionmgr.NewManager(repo, serverKeys, time.Minute, log)
	require.NoError(t, err)
	sessions.Start()
	t.Cleanup(func() { sessions.Close() })

	srv, err := New("127.0.0.1:0", sessions, nil, 4, log)
	require.NoError(t, err)

	disp := dispatch.New(dispatch.Config{BaseRTO: time.Second, MaxRTO: 4 * time.Second, MaxAttempts: 5}, srv, sessions, log)
	disp.Start()
	t.Cleanup(func() { disp.Close() })

	chatSvc := chat.New(repo, sessions, disp, log)
	bridge := ai.New(chatSvc, ai.NoneGenerator{}, 2, log)
	srv.SetRouter(router.New(sessions, disp, srv, chatSvc, bridge, log))

	return srv, sessions
}

func TestServerHandshakeRoundtrip(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(func() { cancel(); srv.Close() })

	client, err := net.Dial("udp", srv.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	clientKeys, err := cryptoprim.GenerateKeyPair()
	require.NoError(t, err)
	clientDER, err := cryptoprim.PublicKeyDER(clientKeys.Public)
	require.NoError(t, err)
	hello, err := wirecodec.EncodeClientHello(clientDER)
	require.NoError(t, err)

	_, err = client.Write(hello)
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8192)
	n, err := client.Read(buf)
	require.NoError(t, err)

	serverHello, _, _, _, err := wirecodec.ParseServerHello(buf[:n])
	require.NoError(t, err)
	require.NotEmpty(t, serverHello.SessionID)
}
