package capability

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession(t *testing.T) (*Client, *Router, func()) {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	router := NewRouter()
	router.RegisterService("echo", func() ServerCapability {
		return AdaptEcho(NewEchoServer())
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = RunServerConnection(ctx, serverConn, router, zap.NewNop())
	}()

	client, err := NewClient(clientConn, zap.NewNop())
	require.NoError(t, err)

	cleanup := func() {
		client.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server connection goroutine never exited")
		}
	}
	return client, router, cleanup
}

func Test_Session_EchoRoundTrip(t *testing.T) {
	client, _, cleanup := newTestSession(t)
	defer cleanup()

	ctx, cancelCall := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelCall()

	reply, err := NewEchoClient(client).Echo(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", reply)
}

func Test_Session_UnknownServiceDoesNotKillSession(t *testing.T) {
	client, _, cleanup := newTestSession(t)
	defer cleanup()

	ctx, cancelCall := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelCall()

	_, err := client.Call(ctx, "nope", "whatever", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service nope not found")

	// The session itself must still be usable after a failed call.
	reply, err := NewEchoClient(client).Echo(ctx, "still alive")
	require.NoError(t, err)
	assert.Equal(t, "still alive", reply)
}

func Test_Session_MultipleConcurrentCalls(t *testing.T) {
	client, _, cleanup := newTestSession(t)
	defer cleanup()

	ctx, cancelCall := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCall()

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			params, err := encodeEchoParams(t, []byte("x"))
			if err != nil {
				errs <- err
				return
			}
			_, err = client.Call(ctx, "echo", "echo", params)
			errs <- err
		}()
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}
}

func Test_Session_CancellationEndsSession(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	router := NewRouter()
	router.RegisterService("echo", func() ServerCapability {
		return AdaptEcho(NewEchoServer())
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- RunServerConnection(ctx, serverConn, router, zap.NewNop())
	}()

	client, err := NewClient(clientConn, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server connection did not terminate after cancellation")
	}
}

func Test_SessionTransportError_MessageAndUnwrap(t *testing.T) {
	underlying := errors.New("connection reset")
	err := &SessionTransportError{Err: underlying}

	assert.Contains(t, err.Error(), "session transport failed")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, underlying)
}

func encodeEchoParams(t *testing.T, payload []byte) ([]byte, error) {
	t.Helper()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(echoParams{Payload: payload}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEchoResults(t *testing.T, raw []byte) []byte {
	t.Helper()
	var results echoResults
	require.NoError(t, gob.NewDecoder(bytes.NewReader(raw)).Decode(&results))
	return results.Payload
}
