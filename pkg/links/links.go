package links

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/types"
)

// platform hides the OS specific parts of link handling
type platform interface {
	// linkType classifies an Lstat result; ok is false for anything that
	// is not a link. The target is not examined, so dangling links and links
	// to files are classified too and CheckHealth reports them as corrupt.
	linkType(path string, info fs.FileInfo) (kind types.LinkType, ok bool)
	junctionSupported(path string) bool
	createJunction(linkPath, targetPath string) error
}

// Manager is the LinkManager
type Manager struct {
	fs       types.FS
	platform platform

	probeOnce sync.Once
	symlinkOK bool
	probe     func() bool
}

// New creates a link manager on top of fs
func New(fs types.FS) *Manager {
	return &Manager{
		fs:       fs,
		platform: newPlatform(),
		probe:    probeSymlink,
	}
}

// IsJunctionSupported reports whether a junction can be created at path.
// Blank or unresolvable paths yield false.
func (m *Manager) IsJunctionSupported(path string) bool {
	abs, err := paths.NormalizePath(path)
	if err != nil {
		return false
	}
	return m.platform.junctionSupported(abs)
}

// IsSymbolicLinkSupported probes once whether directory symlinks can be
// created by this process
func (m *Manager) IsSymbolicLinkSupported() bool {
	m.probeOnce.Do(func() {
		m.symlinkOK = m.probe()
	})
	return m.symlinkOK
}

// Supports reports whether a link of the given type can be created at path
func (m *Manager) Supports(kind types.LinkType, path string) bool {
	switch kind {
	case types.LinkTypeJunction:
		return m.IsJunctionSupported(path)
	case types.LinkTypeSymbolicLink:
		return m.IsSymbolicLinkSupported()
	default:
		return false
	}
}

// CreateJunction creates an NTFS junction at linkPath pointing to targetPath
func (m *Manager) CreateJunction(ctx context.Context, linkPath, targetPath string) error {
	return m.CreateLink(ctx, types.LinkTypeJunction, linkPath, targetPath)
}

// CreateSymbolicLink creates a directory symbolic link at linkPath
func (m *Manager) CreateSymbolicLink(ctx context.Context, linkPath, targetPath string) error {
	return m.CreateLink(ctx, types.LinkTypeSymbolicLink, linkPath, targetPath)
}

// CreateLink creates a link of the given type and verifies that the new
// link resolves to targetPath. A link that does not verify is removed.
func (m *Manager) CreateLink(ctx context.Context, kind types.LinkType, linkPath, targetPath string) error {
	logger := logging.GetLogger("links")

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCanceled, "link creation canceled")
	}

	link, err := paths.NormalizePath(linkPath)
	if err != nil {
		return err
	}
	target, err := paths.NormalizePath(targetPath)
	if err != nil {
		return err
	}

	info, err := m.fs.Stat(target)
	if err != nil || !info.IsDir() {
		return errors.Newf(errors.ErrTargetMissing, "link target %s is not an existing directory", target).
			WithDetail("target", target)
	}
	if filesystem.Exists(m.fs, link) {
		return errors.Newf(errors.ErrLinkExists, "link path %s is already occupied", link).
			WithDetail("link", link)
	}
	if !m.Supports(kind, link) {
		return errors.Newf(errors.ErrLinkUnsupported, "%s links are not supported at %s", kind, link).
			WithDetail("linkType", string(kind))
	}

	switch kind {
	case types.LinkTypeJunction:
		err = m.platform.createJunction(link, target)
	case types.LinkTypeSymbolicLink:
		err = m.fs.Symlink(target, link)
	}
	if err != nil {
		logger.Error().Err(err).Str("link", link).Str("target", target).Msg("failed to create link")
		return errors.Wrapf(err, errors.ErrLinkCreate, "failed to create %s at %s", kind, link)
	}

	got, err := m.GetLinkInfo(link)
	if err != nil || got == nil || got.LinkType != kind || !paths.SamePath(got.TargetPath, target) {
		e := errors.Newf(errors.ErrLinkCreate, "link at %s does not resolve to %s", link, target)
		if err != nil {
			e = e.WithDetail("inspect", err.Error())
		}
		if got != nil {
			e = e.WithDetail("actual", got.TargetPath)
		}
		// A link left behind here is not in any undo log
		if rerr := m.fs.Remove(link); rerr != nil {
			logger.Error().Err(rerr).Str("link", link).Msg("failed to remove unverified link")
			e = e.WithDetail("cleanup", rerr.Error())
		}
		return e
	}

	logger.Debug().
		Str("link", link).
		Str("target", target).
		Str("type", string(kind)).
		Msg("created link")
	return nil
}

// GetLinkInfo describes the link at path. Plain directories, files and
// missing paths yield nil without an error.
func (m *Manager) GetLinkInfo(path string) (*types.LinkInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	info, err := m.fs.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to inspect %s", path)
	}

	kind, ok := m.platform.linkType(path, info)
	if !ok {
		return nil, nil
	}

	target, err := m.fs.Readlink(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read link %s", path)
	}
	if !filepath.IsAbs(target) && filepath.VolumeName(target) == "" && !strings.HasPrefix(target, `\??\`) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	if normalized, err := paths.NormalizePath(target); err == nil {
		target = normalized
	}

	return &types.LinkInfo{
		LinkPath:   path,
		TargetPath: target,
		LinkType:   kind,
	}, nil
}

// RemoveLink deletes the link at path and nothing else. It returns false
// when path is not a link.
func (m *Manager) RemoveLink(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Wrap(err, errors.ErrCanceled, "link removal canceled")
	}

	info, err := m.GetLinkInfo(path)
	if err != nil {
		return false, err
	}
	if info == nil {
		return false, nil
	}

	// Remove on a link deletes the reparse point, never the target contents
	if err := m.fs.Remove(path); err != nil {
		return false, errors.Wrapf(err, errors.ErrLinkRemove, "failed to remove link %s", path)
	}

	logger := logging.GetLogger("links")
	logger.Debug().
		Str("link", path).
		Str("target", info.TargetPath).
		Msg("removed link")
	return true, nil
}

// CheckHealth classifies the install path. Inconsistent states are
// reported as corrupt and left untouched.
func (m *Manager) CheckHealth(path string) types.InstallState {
	state := types.InstallState{Path: path}

	if strings.TrimSpace(path) == "" {
		state.State = types.StateMissing
		state.Problem = "empty path"
		return state
	}

	info, err := m.fs.Lstat(path)
	if err != nil {
		state.State = types.StateMissing
		if !os.IsNotExist(err) {
			state.State = types.StateCorrupt
			state.Problem = err.Error()
		}
		return state
	}

	link, err := m.GetLinkInfo(path)
	if err != nil {
		state.State = types.StateCorrupt
		state.Problem = err.Error()
		return state
	}

	if link == nil {
		if info.IsDir() {
			state.State = types.StateOriginal
		} else {
			state.State = types.StateCorrupt
			state.Problem = "install path is not a directory"
		}
		return state
	}

	state.Link = link
	target, err := m.fs.Stat(link.TargetPath)
	switch {
	case err != nil:
		state.State = types.StateCorrupt
		state.Problem = "link target " + link.TargetPath + " does not exist"
	case !target.IsDir():
		state.State = types.StateCorrupt
		state.Problem = "link target " + link.TargetPath + " is not a directory"
	default:
		state.State = types.StateMigrated
	}
	return state
}

// probeSymlink tries to create a directory symlink in a scratch directory
func probeSymlink() bool {
	dir, err := os.MkdirTemp("", "relocator-probe-")
	if err != nil {
		return false
	}
	defer func() { _ = os.RemoveAll(dir) }()

	target := filepath.Join(dir, "target")
	if err := os.Mkdir(target, 0755); err != nil {
		return false
	}
	return os.Symlink(target, filepath.Join(dir, "link")) == nil
}
