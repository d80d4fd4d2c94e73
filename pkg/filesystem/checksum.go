package filesystem

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/relocator/pkg/types"
)

// FileChecksum calculates the SHA256 checksum of a file
func FileChecksum(fsys types.FS, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// Manifest maps slash-separated paths relative to a root onto checksums.
// Directories map to "dir" and links to "link:<target>".
type Manifest map[string]string

// BuildManifest checksums every entry below root
func BuildManifest(ctx context.Context, fsys types.FS, root string) (Manifest, error) {
	m := Manifest{}
	err := walk(ctx, fsys, root, func(path string, info fs.FileInfo) error {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := fsys.Readlink(path)
			if err != nil {
				return err
			}
			m[rel] = "link:" + target
		case info.IsDir():
			m[rel] = "dir"
		default:
			sum, err := FileChecksum(fsys, path)
			if err != nil {
				return err
			}
			m[rel] = sum
		}
		return nil
	})
	return m, err
}

// Diff lists every path whose entry differs between m and other, sorted
func (m Manifest) Diff(other Manifest) []string {
	var diff []string
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			diff = append(diff, k)
		}
	}
	for k := range other {
		if _, ok := m[k]; !ok {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}
