package rendezvous

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/arnodb/teleop/attach"
	"github.com/arnodb/teleop/cancel"
)

// Listener is the target-process side of the rendezvous channel. It
// stays dormant (per spec.md §4.C) until its Attacher reports
// signaled, then binds the well-known endpoint and accepts
// connections, handing each to Handle on its own goroutine. Modeled
// directly on the teacher's Rcvr_UnixSocket / Rcvr_NamedPipe pair:
// one goroutine drives accept(), a subordinate goroutine force-closes
// the listener when the shared token is cancelled, and each accepted
// connection gets its own worker goroutine guarded the same way.
type Listener struct {
	PID      int
	Attacher attach.Attacher
	Logger   *zap.Logger
	Token    *cancel.Token
	Handle   func(conn net.Conn)

	mu       sync.Mutex
	listener net.Listener
	path     string
}

// Start arms the attacher synchronously, then in the background waits
// for the arming condition, binds the endpoint, and serves accepted
// connections until the token is cancelled. It returns as soon as the
// attacher is armed; it does not block for the attach handshake
// itself.
func (l *Listener) Start(ctx context.Context) error {
	signaled, err := l.Attacher.Signaled()
	if err != nil {
		return err
	}

	go l.run(signaled)
	return nil
}

func (l *Listener) run(signaled attach.Signaled) {
	if err := signaled.Wait(l.Token.Context()); err != nil {
		if l.Token.IsCancelled() {
			return
		}
		l.Logger.Error("attach signal wait failed", zap.Error(err))
		return
	}

	if l.Token.IsCancelled() {
		return
	}

	if err := l.bind(); err != nil {
		l.Logger.Error("could not bind rendezvous endpoint", zap.Error(err))
		return
	}

	l.Logger.Info("attached, serving rendezvous connections", zap.String("path", l.path))
	l.acceptLoop()
}

// Shutdown stops accepting new connections and best-effort removes the
// rendezvous endpoint. Already-accepted connections are unaffected;
// they terminate independently when the token is cancelled.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listener != nil {
		_ = l.listener.Close()
	}
	l.cleanup()
	return nil
}

func (l *Listener) dispatch(conn net.Conn) {
	if l.Handle == nil {
		conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-l.Token.Cancelled():
			conn.Close()
		case <-done:
		}
	}()

	l.Handle(conn)
	close(done)
}
