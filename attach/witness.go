package attach

import (
	"fmt"
	"os"
	"path/filepath"
)

// witnessFileName is the base name of the zero-byte witness file
// whose existence, not contents, authenticates an attach attempt.
func witnessFileName(pid int) string {
	return fmt.Sprintf(".teleop_attach_%d", pid)
}

// witnessFilePath returns the witness file path for pid within cwd,
// the target process's resolved working directory.
func witnessFilePath(cwd string, pid int) string {
	return filepath.Join(cwd, witnessFileName(pid))
}

// ownWitnessFilePath returns the witness file path within the calling
// process's own working directory, used by the listener side which
// resolves its own cwd rather than reading another process's.
func ownWitnessFilePath(pid int) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return witnessFilePath(cwd, pid), nil
}

// witnessFile owns the on-disk witness file created for one attach
// attempt. Its zero value is "no file created yet". ensure is
// idempotent: once it has created the file, it only touches disk again
// if the file has gone missing.
type witnessFile struct {
	path    string
	created bool
}

func (w *witnessFile) ensure(path string) error {
	w.path = path
	if w.created {
		if exists, err := fileExists(path); err != nil {
			return err
		} else if exists {
			return nil
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.created = true
	return nil
}

func (w *witnessFile) remove() error {
	if !w.created {
		return nil
	}
	err := os.Remove(w.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	w.created = false
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
