//go:build !windows

package rendezvous

import (
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// bind creates the Unix domain socket at the rendezvous path. Adapted
// from the teacher's openSocketForListening: a dead socket left behind
// by a crashed previous attempt is unlinked first (spec.md §4.C's
// "stale socket" open item resolved the same way the teacher resolves
// it for its own Trace2 socket), and the created inode is recorded so
// the accept loop can notice if the path is later stolen out from
// under it.
func (l *Listener) bind() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.path = SocketPath(l.PID)

	_ = os.Remove(l.path)

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: l.path, Net: "unix"})
	if err != nil {
		return err
	}
	ln.SetUnlinkOnClose(false)
	l.listener = ln

	if err := os.Chmod(l.path, 0600); err != nil {
		ln.Close()
		return err
	}

	return nil
}

func (l *Listener) cleanup() {
	if l.path != "" {
		_ = os.Remove(l.path)
	}
}

func getInode(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, err
	}
	return st.Ino, nil
}

func (l *Listener) acceptLoop() {
	l.mu.Lock()
	ln := l.listener
	path := l.path
	l.mu.Unlock()

	inode, err := getInode(path)
	if err != nil {
		l.Logger.Error("could not stat rendezvous socket", zap.Error(err))
		return
	}

	stopStaleCheck := make(chan struct{})
	go l.watchForStolenSocket(path, inode, stopStaleCheck)

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
	close(stopStaleCheck)
}

func (l *Listener) watchForStolenSocket(path string, expected uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-l.Token.Cancelled():
			return
		case <-ticker.C:
			inode, err := getInode(path)
			if err != nil {
				l.Logger.Error("rendezvous socket disappeared", zap.Error(err))
				l.mu.Lock()
				if l.listener != nil {
					l.listener.Close()
				}
				l.mu.Unlock()
				return
			}
			if inode != expected {
				l.Logger.Error("rendezvous socket path was reused by another process",
					zap.Uint64("expected_inode", expected), zap.Uint64("observed_inode", inode))
				l.mu.Lock()
				if l.listener != nil {
					l.listener.Close()
				}
				l.mu.Unlock()
				return
			}
		}
	}
}
