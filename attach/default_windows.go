//go:build windows

package attach

// NewDefault returns the attacher variant used when configuration does
// not request a specific one. On Windows, original_source falls back
// to the dummy attacher; this module does the same.
func NewDefault() Attacher {
	return DummyAttacher{}
}
