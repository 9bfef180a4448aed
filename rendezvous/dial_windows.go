//go:build windows

package rendezvous

import (
	"context"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func endpointPath(pid int) string {
	return pipePath(pid)
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}

// exists probes the named pipe with a short-timeout dial rather than a
// filesystem stat: Windows named pipes do not appear as ordinary
// filesystem entries that os.Stat can see.
func exists(path string) bool {
	probeCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	conn, err := winio.DialPipeContext(probeCtx, path)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
