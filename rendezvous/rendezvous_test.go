//go:build !windows

package rendezvous

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnodb/teleop/attach"
	"github.com/arnodb/teleop/cancel"
)

func Test_ListenAndConnect_HappyPath(t *testing.T) {
	pid := os.Getpid()
	token := cancel.New()
	defer token.Cancel()

	accepted := make(chan net.Conn, 1)
	l := &Listener{
		PID:      pid,
		Attacher: attach.DummyAttacher{},
		Logger:   zap.NewNop(),
		Token:    token,
		Handle: func(conn net.Conn) {
			accepted <- conn
			<-token.Cancelled()
		},
	}
	require.NoError(t, l.Start(context.Background()))
	defer l.Shutdown(context.Background())

	ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCtx()

	clientConn, err := Connect(ctx, pid, attach.DummyAttacher{})
	require.NoError(t, err)
	defer clientConn.Close()

	select {
	case serverConn := <-accepted:
		defer serverConn.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("listener never accepted the client connection")
	}
}

func Test_Connect_NoResponse(t *testing.T) {
	// A PID exceedingly unlikely to be alive and listening.
	const deadPid = 999999

	start := time.Now()
	_, err := Connect(context.Background(), deadPid, attach.DummyAttacher{})
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Contains(t, err.Error(), "Unable to open socket file")
	require.Less(t, elapsed, 11*time.Second)
}

func Test_Listener_RemovesStaleSocket(t *testing.T) {
	pid := os.Getpid()
	path := SocketPath(pid)

	stale, err := net.Listen("unix", path)
	require.NoError(t, err)
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	stale.Close() // leaves the socket file on disk without removing it
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	token := cancel.New()
	defer token.Cancel()

	l := &Listener{
		PID:      pid,
		Attacher: attach.DummyAttacher{},
		Logger:   zap.NewNop(),
		Token:    token,
	}
	require.NoError(t, l.Start(context.Background()))
	defer l.Shutdown(context.Background())

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("unix", path, 100*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 50*time.Millisecond)
}
