package migration

import (
	"context"
	"math"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/types"
)

// CreatePlan works out where entry would be relocated under targetBasePath
// and what moving it involves. Nothing is mutated.
func (e *Engine) CreatePlan(ctx context.Context, entry *types.SoftwareEntry, targetBasePath string, tmpl *types.NamingTemplate) (*types.MigrationPlan, error) {
	if entry == nil {
		return nil, errors.New(errors.ErrInvalidInput, "software entry is required")
	}
	if tmpl == nil {
		return nil, errors.New(errors.ErrInvalidInput, "naming template is required")
	}
	if strings.TrimSpace(targetBasePath) == "" {
		return nil, errors.New(errors.ErrInvalidInput, "target base path is required")
	}
	if strings.TrimSpace(entry.InstallPath) == "" {
		return nil, errors.Newf(errors.ErrInvalidInput, "software %q has no install path", entry.Name)
	}

	logger := logging.GetLogger("migration")
	done := logging.LogOperationStart(logger, "create plan")
	defer done()

	source, err := paths.NormalizePath(entry.InstallPath)
	if err != nil {
		return nil, err
	}
	base, err := paths.NormalizePath(targetBasePath)
	if err != nil {
		return nil, err
	}
	if paths.ContainsPath(source, base) {
		return nil, errors.Newf(errors.ErrInvalidInput, "target base %s lies inside the install directory %s", base, source)
	}

	if err := e.checkSource(source); err != nil {
		return nil, err
	}

	name, err := e.naming.GenerateName(entry, tmpl)
	if err != nil {
		return nil, err
	}
	target, err := e.naming.ResolveConflict(base, name)
	if err != nil {
		return nil, err
	}
	if !paths.ContainsPath(base, target) {
		return nil, errors.Newf(errors.ErrInternal, "resolved target %s escapes %s", target, base)
	}

	ops, total, err := e.fileOperations(ctx, source, target)
	if err != nil {
		return nil, err
	}

	free, err := e.volumes.FreeSpace(target)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to query free space for %s", target)
	}

	recommended := types.LinkTypeJunction
	if e.links.IsSymbolicLinkSupported() {
		recommended = types.LinkTypeSymbolicLink
	}

	plan := &types.MigrationPlan{
		ID:                  uuid.NewString(),
		Entry:               *entry,
		SourcePath:          source,
		TargetPath:          target,
		FileOperations:      ops,
		TotalSizeBytes:      total,
		AvailableSpaceBytes: clampInt64(free),
		RecommendedLinkType: recommended,
		CreatedAt:           e.now(),
	}

	logger.Info().
		Str("plan", plan.ID).
		Str("source", source).
		Str("target", target).
		Int64("bytes", total).
		Int("operations", len(ops)).
		Msg("migration planned")
	return plan, nil
}

// checkSource requires a plain directory at the install path
func (e *Engine) checkSource(source string) error {
	link, err := e.links.GetLinkInfo(source)
	if err != nil {
		return err
	}
	if link != nil {
		return errors.Newf(errors.ErrLinkExists, "%s is already a link to %s", source, link.TargetPath).
			WithDetail("target", link.TargetPath)
	}
	info, err := e.fs.Stat(source)
	if err != nil || !info.IsDir() {
		return errors.Newf(errors.ErrSourceMissing, "install directory %s does not exist", source).
			WithDetail("source", source)
	}
	return nil
}

// fileOperations partitions source into one move per top-level entry
func (e *Engine) fileOperations(ctx context.Context, source, target string) ([]types.FileMoveOperation, int64, error) {
	entries, err := e.fs.ReadDir(source)
	if err != nil {
		return nil, 0, errors.Wrapf(err, errors.ErrFileAccess, "failed to list %s", source)
	}

	ops := make([]types.FileMoveOperation, 0, len(entries))
	var total int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCanceled, "planning canceled")
		}
		src := filepath.Join(source, entry.Name())
		size, err := filesystem.DirSize(ctx, e.fs, src)
		if err != nil {
			return nil, 0, errors.Wrapf(err, errors.ErrFileAccess, "failed to measure %s", src)
		}
		ops = append(ops, types.FileMoveOperation{
			Source:      src,
			Destination: filepath.Join(target, entry.Name()),
			SizeBytes:   size,
			IsDir:       entry.IsDir(),
		})
		total += size
	}
	return ops, total, nil
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
