package paths

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/arthur-debert/relocator/pkg/errors"
)

// NormalizePath expands home, makes the path absolute and cleans it
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}
	if strings.Contains(path, "\x00") {
		return "", errors.New(errors.ErrInvalidInput, "path contains null bytes")
	}

	abs, err := filepath.Abs(stripDevicePrefix(expandHome(path)))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path")
	}
	return filepath.Clean(abs), nil
}

// stripDevicePrefix removes the NT object prefixes that junction targets
// are stored with (\??\C:\... and \\?\C:\...)
func stripDevicePrefix(path string) string {
	for _, prefix := range []string{`\??\`, `\\?\`} {
		if strings.HasPrefix(path, prefix) {
			return path[len(prefix):]
		}
	}
	return path
}

// SamePath compares two paths after normalization. Comparison is
// case-insensitive on Windows, where the filesystem is.
func SamePath(a, b string) bool {
	na, errA := NormalizePath(a)
	nb, errB := NormalizePath(b)
	if errA != nil || errB != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.EqualFold(na, nb)
	}
	return na == nb
}

// ContainsPath checks if child is parent itself or lies beneath it.
// Both paths are normalized before comparison.
func ContainsPath(parent, child string) bool {
	np, err := NormalizePath(parent)
	if err != nil {
		return false
	}
	nc, err := NormalizePath(child)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		np, nc = strings.ToLower(np), strings.ToLower(nc)
	}

	rel, err := filepath.Rel(np, nc)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
