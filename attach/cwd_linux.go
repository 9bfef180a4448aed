//go:build linux

package attach

import (
	"fmt"
	"os"
)

// processCwd resolves pid's working directory by reading the
// /proc/<pid>/cwd symlink, exactly as spec.md §6 names as the
// canonical Linux mechanism. No third-party process-table library
// improves on a single os.Readlink here.
func processCwd(pid int) (string, error) {
	link := fmt.Sprintf("/proc/%d/cwd", pid)
	target, err := os.Readlink(link)
	if err != nil {
		return "", &ResolveCwdError{PID: pid, Reason: err}
	}
	return target, nil
}
