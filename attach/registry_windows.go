//go:build windows

package attach

import "fmt"

// FromName resolves a configuration-level attacher name to a
// constructed Attacher. An empty name selects the platform default.
// unix-signal is a Unix-only variant and is rejected here.
func FromName(name string) (Attacher, error) {
	switch name {
	case "":
		return NewDefault(), nil
	case "dummy":
		return DummyAttacher{}, nil
	case "watch":
		return WatchAttacher{}, nil
	case "unix-signal":
		return nil, fmt.Errorf("attach: unix-signal attacher is not available on windows")
	default:
		return nil, fmt.Errorf("attach: unknown attacher %q", name)
	}
}
