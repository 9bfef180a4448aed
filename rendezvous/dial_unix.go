//go:build !windows

package rendezvous

import (
	"context"
	"net"
	"os"
)

func endpointPath(pid int) string {
	return SocketPath(pid)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func dial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
