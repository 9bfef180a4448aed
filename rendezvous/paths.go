// Package rendezvous implements the well-known local endpoint whose
// existence is the attach acknowledgement: the target creates it only
// after its Attacher reports signaled, and the client provokes that
// signal (retrying on a bounded schedule) until the endpoint appears.
package rendezvous

import (
	"fmt"
	"os"
	"path/filepath"
)

// SocketPath returns the Unix rendezvous socket path for pid:
// <system-temp-dir>/.teleop_pid_<pid>, per spec.md §6. On Windows the
// endpoint is instead the named pipe returned by pipePath; see
// listener_windows.go / dial_windows.go.
func SocketPath(pid int) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf(".teleop_pid_%d", pid))
}
