// Package scratch provides request-scoped temporary storage.
//
// Each pipeline run owns exactly one Dir. Directories are never shared
// between concurrent requests and must be released on every exit path.
package scratch

import (
	"sync"

	"github.com/spf13/afero"
)

// Dir is one request's isolated scratch directory.
type Dir struct {
	fs   afero.Fs
	path string

	mu       sync.Mutex
	released bool
}

// New allocates a fresh scratch directory under base. An empty base uses the
// filesystem's default temp location.
func New(fs afero.Fs, base, requestID string) (*Dir, error) {
	if base != "" {
		if err := fs.MkdirAll(base, 0o755); err != nil {
			return nil, err
		}
	}
	prefix := "ytcourier-"
	if requestID != "" {
		prefix += requestID + "-"
	}
	path, err := afero.TempDir(fs, base, prefix)
	if err != nil {
		return nil, err
	}
	return &Dir{fs: fs, path: path}, nil
}

// Fs returns the filesystem the directory lives on.
func (d *Dir) Fs() afero.Fs { return d.fs }

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// Release reclaims the directory and everything in it. Safe to call more
// than once; every call after the first is a no-op.
func (d *Dir) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil
	}
	d.released = true
	return d.fs.RemoveAll(d.path)
}
