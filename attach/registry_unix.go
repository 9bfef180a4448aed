//go:build !windows

package attach

import "fmt"

// FromName resolves a configuration-level attacher name to a
// constructed Attacher. An empty name selects the platform default.
func FromName(name string) (Attacher, error) {
	switch name {
	case "":
		return NewDefault(), nil
	case "dummy":
		return DummyAttacher{}, nil
	case "unix-signal":
		return UnixSignalAttacher{}, nil
	case "watch":
		return WatchAttacher{}, nil
	default:
		return nil, fmt.Errorf("attach: unknown attacher %q", name)
	}
}
