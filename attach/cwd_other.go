//go:build !linux

package attach

import (
	"errors"
	"math"

	"github.com/shirou/gopsutil/v3/process"
)

// processCwd resolves pid's working directory via gopsutil, the Go
// ecosystem's counterpart to the sysinfo crate original_source uses
// for the same concern. Darwin and Windows have no /proc to read
// directly, so this is the process-table walk spec.md §6 calls for
// ("equivalent on other Unixes; Windows equivalent").
func processCwd(pid int) (string, error) {
	if pid < 0 || pid > math.MaxInt32 {
		return "", &ResolveCwdError{PID: pid, Reason: errors.New("pid out of int32 range")}
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", &ResolveCwdError{PID: pid, Reason: err}
	}
	cwd, err := proc.Cwd()
	if err != nil {
		return "", &ResolveCwdError{PID: pid, Reason: err}
	}
	if cwd == "" {
		return "", &ResolveCwdError{PID: pid, Reason: errNoCwd}
	}
	return cwd, nil
}

var errNoCwd = cwdNotFoundError{}

type cwdNotFoundError struct{}

func (cwdNotFoundError) Error() string { return "process reported no working directory" }
