//go:build !windows

package attach

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// UnixSignalAttacher raises SIGQUIT on the target PID and waits for
// both the signal to arrive and the witness file to exist in the
// current process's own working directory. Kept for parity with
// original_source's unix.rs, whose own doc comment already points new
// callers at the directory-watch variant instead
// (see WatchAttacher) — this one is selectable but not the default
// on any platform.
type UnixSignalAttacher struct{}

func (UnixSignalAttacher) Signal(pid int) (SignalHandle, error) {
	return &unixSignalHandle{pid: pid}, nil
}

// Signaled registers the SIGQUIT handler synchronously before
// returning, so a listener that calls Signaled but defers Wait cannot
// miss a signal delivered in between.
func (UnixSignalAttacher) Signaled() (Signaled, error) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGQUIT)
	return &unixSignaled{ch: ch}, nil
}

type unixSignaled struct {
	ch chan os.Signal
}

func (s *unixSignaled) Wait(ctx context.Context) error {
	defer signal.Stop(s.ch)

	path, err := ownWitnessFilePath(os.Getpid())
	if err != nil {
		return err
	}

	// The witness file may already be present if we arrived here via
	// a retry of a previous, incomplete attach attempt.
	if exists, err := fileExists(path); err != nil {
		return err
	} else if exists {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ch:
			exists, err := fileExists(path)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
			// A SIGQUIT that isn't ours: the witness file is absent,
			// so keep waiting rather than treating it as an attach.
		}
	}
}

type unixSignalHandle struct {
	pid  int
	mu   sync.Mutex
	file witnessFile
}

func (h *unixSignalHandle) Send(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cwd, err := processCwd(h.pid)
	if err != nil {
		return err
	}
	if err := h.file.ensure(witnessFilePath(cwd, h.pid)); err != nil {
		return err
	}
	return unix.Kill(h.pid, unix.SIGQUIT)
}

func (h *unixSignalHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.remove()
}
