//go:build windows

package rendezvous

import (
	"fmt"
	"os"

	"github.com/Microsoft/go-winio"
	"go.uber.org/zap"
)

// pipePath returns the named pipe path standing in for the Unix
// rendezvous socket on Windows, generalized from the teacher's
// Rcvr_NamedPipe.
func pipePath(pid int) string {
	return fmt.Sprintf(`\\.\pipe\teleop_pid_%d`, pid)
}

func (l *Listener) bind() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.path = pipePath(l.PID)
	_ = os.Remove(l.path)

	ln, err := winio.ListenPipe(l.path, &winio.PipeConfig{
		InputBufferSize:  65536,
		OutputBufferSize: 65536,
	})
	if err != nil {
		return err
	}
	l.listener = ln
	return nil
}

func (l *Listener) cleanup() {
	if l.path != "" {
		_ = os.Remove(l.path)
	}
}

func (l *Listener) acceptLoop() {
	l.mu.Lock()
	ln := l.listener
	l.mu.Unlock()

	doneAccepting := make(chan struct{})
	go func() {
		select {
		case <-l.Token.Cancelled():
			ln.Close()
		case <-doneAccepting:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if l.Token.IsCancelled() {
				break
			}
			l.Logger.Error("accept failed", zap.Error(err))
			break
		}
		go l.dispatch(conn)
	}

	close(doneAccepting)
}
