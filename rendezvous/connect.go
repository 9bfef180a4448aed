package rendezvous

import (
	"context"
	"net"
	"time"

	"github.com/arnodb/teleop/attach"
)

const (
	retryInterval    = 100 * time.Millisecond
	maxExtraAttempts = 99
)

// Connect implements the client half of the rendezvous handshake
// (spec.md §4.C): if the endpoint already exists, dial it directly;
// otherwise obtain a signal handle, send it, and retry up to 99
// additional times at 100ms intervals (~10s total) before giving up
// with NoResponseError.
func Connect(ctx context.Context, pid int, attacher attach.Attacher) (net.Conn, error) {
	path := endpointPath(pid)

	if exists(path) {
		return dial(ctx, path)
	}

	signal, err := attacher.Signal(pid)
	if err != nil {
		return nil, err
	}
	defer signal.Close()

	if err := signal.Send(ctx); err != nil {
		return nil, err
	}

	attempt := 1
	for !exists(path) && attempt < 1+maxExtraAttempts {
		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if err := signal.Send(ctx); err != nil {
			return nil, err
		}
		attempt++
	}

	if !exists(path) {
		return nil, &NoResponseError{Path: path, PID: pid, Attempt: attempt}
	}

	return dial(ctx, path)
}
