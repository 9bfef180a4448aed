package rendezvous

import "fmt"

// NoResponseError is returned by Connect when the rendezvous endpoint
// never appeared within the retry budget. Its message deliberately
// starts with "Unable to open socket file" so that callers asserting
// on the message prefix (spec.md §8 scenario 3) see the expected text
// regardless of platform.
type NoResponseError struct {
	Path    string
	PID     int
	Attempt int
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("Unable to open socket file %s: target process %d doesn't respond after %d attempts",
		e.Path, e.PID, e.Attempt)
}
