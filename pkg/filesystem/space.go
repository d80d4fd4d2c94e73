package filesystem

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/relocator/pkg/types"
)

type osVolumes struct{}

// NewOSVolumes returns the VolumeInfo backed by the operating system
func NewOSVolumes() types.VolumeInfo {
	return osVolumes{}
}

// FreeSpace reports the space available on the volume holding path. The
// target of a relocation usually does not exist yet, so the nearest
// existing ancestor is queried.
func (osVolumes) FreeSpace(path string) (uint64, error) {
	existing, err := nearestExisting(path)
	if err != nil {
		return 0, err
	}
	return freeSpace(existing)
}

func nearestExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", &os.PathError{Op: "freespace", Path: path, Err: os.ErrNotExist}
		}
		abs = parent
	}
}

// FixedVolumes reports the same free space for every path. Useful for
// previews and tests that must not depend on the host disk.
type FixedVolumes struct {
	Free uint64
	Err  error
}

// FreeSpace implements types.VolumeInfo
func (f FixedVolumes) FreeSpace(string) (uint64, error) {
	return f.Free, f.Err
}
