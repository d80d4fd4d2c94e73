package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arthur-debert/relocator/pkg/types"
)

// DirSize returns the total size in bytes of every regular file below root.
// Links are counted by their own size and never followed, so a tree that
// contains a link back to itself terminates.
func DirSize(ctx context.Context, fsys types.FS, root string) (int64, error) {
	info, err := fsys.Lstat(root)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = walk(ctx, fsys, root, func(path string, info fs.FileInfo) error {
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// walk visits root and everything below it in lexical order without
// following links
func walk(ctx context.Context, fsys types.FS, root string, fn func(path string, info fs.FileInfo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := fsys.Lstat(root)
	if err != nil {
		return err
	}
	if err := fn(root, info); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := fsys.ReadDir(root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := walk(ctx, fsys, filepath.Join(root, entry.Name()), fn); err != nil {
			return err
		}
	}
	return nil
}

// CopyTree recreates src at dst: directories with their permissions,
// regular files byte for byte, links as links with the same target.
func CopyTree(ctx context.Context, fsys types.FS, src, dst string) error {
	return walk(ctx, fsys, src, func(path string, info fs.FileInfo) error {
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err := fsys.Readlink(path)
			if err != nil {
				return err
			}
			return fsys.Symlink(link, target)
		case info.IsDir():
			return fsys.MkdirAll(target, info.Mode().Perm())
		default:
			return copyFile(fsys, path, target, info.Mode().Perm())
		}
	})
}

func copyFile(fsys types.FS, src, dst string, perm fs.FileMode) (err error) {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := fsys.Create(dst, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// ErrSourceNotRemoved is returned by Move when a cross-volume copy
// completed but the source could not be fully removed. dst then holds the
// whole tree and src may be partly deleted.
var ErrSourceNotRemoved = errors.New("source not removed after copy")

// Move relocates src to dst. A rename is tried first; when the two paths
// live on different volumes the tree is copied and the source removed.
// A failed copy removes whatever was written to dst and leaves src intact.
func Move(ctx context.Context, fsys types.FS, src, dst string) error {
	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	err := fsys.Rename(src, dst)
	if err == nil || !isCrossDevice(err) {
		return err
	}

	if err := CopyTree(ctx, fsys, src, dst); err != nil {
		_ = fsys.RemoveAll(dst)
		return err
	}
	if err := fsys.RemoveAll(src); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceNotRemoved, src, err)
	}
	return nil
}

// Exists reports whether anything, including a dangling link, is at path
func Exists(fsys types.FS, path string) bool {
	_, err := fsys.Lstat(path)
	return err == nil
}

// IsEmptyDir reports whether path is a directory with no entries
func IsEmptyDir(fsys types.FS, path string) (bool, error) {
	entries, err := fsys.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
