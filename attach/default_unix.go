//go:build !windows

package attach

// NewDefault returns the attacher variant used when configuration does
// not request a specific one. On Unix, directory-watch attachment is
// preferred over raising SIGQUIT (see UnixSignalAttacher's doc comment).
func NewDefault() Attacher {
	return WatchAttacher{}
}
