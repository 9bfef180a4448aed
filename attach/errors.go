package attach

import "fmt"

// ResolveCwdError is returned when a PID cannot be mapped to a working
// directory: the process is gone, we lack permission, or the PID does
// not fit the platform's process-table integer type.
type ResolveCwdError struct {
	PID    int
	Reason error
}

func (e *ResolveCwdError) Error() string {
	return fmt.Sprintf("cannot resolve working directory of pid %d: %v", e.PID, e.Reason)
}

func (e *ResolveCwdError) Unwrap() error {
	return e.Reason
}
