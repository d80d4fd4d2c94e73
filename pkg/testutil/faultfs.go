package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/relocator/pkg/types"
)

// FaultFS wraps a filesystem and injects the failures a relocation has to
// survive. The zero value of each knob leaves the wrapped call alone.
type FaultFS struct {
	types.FS

	// CrossDevice fails every Rename as if the paths were on different
	// volumes, forcing Move onto its copy path
	CrossDevice bool

	// OnRename runs after each rename that succeeded
	OnRename func(oldpath, newpath string)

	mu       sync.Mutex
	failOnce map[string]bool
}

// NewFaultFS wraps fsys
func NewFaultFS(fsys types.FS) *FaultFS {
	return &FaultFS{FS: fsys, failOnce: map[string]bool{}}
}

// FailRemoveAllOnce makes the next RemoveAll of path delete its first
// entry and then fail with a permission error
func (f *FaultFS) FailRemoveAllOnce(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOnce[filepath.Clean(path)] = true
}

func (f *FaultFS) Rename(oldpath, newpath string) error {
	if f.CrossDevice {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: errCrossDevice}
	}
	if err := f.FS.Rename(oldpath, newpath); err != nil {
		return err
	}
	if f.OnRename != nil {
		f.OnRename(oldpath, newpath)
	}
	return nil
}

func (f *FaultFS) RemoveAll(path string) error {
	f.mu.Lock()
	fail := f.failOnce[filepath.Clean(path)]
	delete(f.failOnce, filepath.Clean(path))
	f.mu.Unlock()

	if !fail {
		return f.FS.RemoveAll(path)
	}
	if entries, err := f.FS.ReadDir(path); err == nil && len(entries) > 0 {
		if err := f.FS.RemoveAll(filepath.Join(path, entries[0].Name())); err != nil {
			return err
		}
	}
	return &os.PathError{Op: "unlinkat", Path: path, Err: fs.ErrPermission}
}
