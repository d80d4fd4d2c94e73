package migration

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/types"
)

// run is the state of one execution
type run struct {
	e        *Engine
	plan     types.MigrationPlan
	opID     string
	actions  []types.OperationAction
	logged   int
	progress chan<- types.Progress
}

// record appends a completed mutation to the undo log. The action is kept
// locally even when the ledger write fails so it can still be undone.
// The step already happened, so cancellation does not stop the write.
func (r *run) record(ctx context.Context, action types.OperationAction) error {
	action.Timestamp = r.e.now()
	r.actions = append(r.actions, action)
	return r.flush(context.WithoutCancel(ctx))
}

// flush writes the actions not yet in the ledger, in order, so ledger
// indices match the local undo log
func (r *run) flush(ctx context.Context) error {
	for r.logged < len(r.actions) {
		if err := r.e.ledger.LogAction(ctx, r.opID, &r.actions[r.logged]); err != nil {
			return errors.Wrap(err, errors.ErrStore, "failed to log action")
		}
		r.logged++
	}
	return nil
}

// Execute relocates the plan's source directory to its target and leaves a
// link behind. The plan is taken by value and never written back.
//
// Precondition failures return before anything is recorded or mutated.
// Later failures roll back what was done and return MIGRATION_FAILED;
// cancellation leaves completed steps in place and returns CANCELED. The
// result is never nil.
func (e *Engine) Execute(ctx context.Context, plan types.MigrationPlan, opts types.MigrationOptions, progress chan<- types.Progress) (*types.MigrationResult, error) {
	logger := logging.GetLogger("migration")
	result := &types.MigrationResult{
		LinkPath:   plan.SourcePath,
		TargetPath: plan.TargetPath,
	}
	fail := func(err error) (*types.MigrationResult, error) {
		result.Error = err.Error()
		logger.Error().Err(err).Str("source", plan.SourcePath).Msg("migration not started")
		return result, err
	}

	types.SendProgress(progress, types.Progress{Stage: types.StagePreflight, CurrentItem: plan.SourcePath})

	// Space gate. Nothing may happen before it.
	if !plan.HasEnoughSpace() {
		return fail(errors.Newf(errors.ErrInsufficientSpace,
			"not enough space at %s: %d bytes needed, %d available",
			plan.TargetPath, plan.TotalSizeBytes, plan.AvailableSpaceBytes).
			WithDetails(map[string]interface{}{
				"required":  plan.TotalSizeBytes,
				"available": plan.AvailableSpaceBytes,
			}))
	}

	kind, manifest, err := e.preflight(ctx, plan, opts)
	if err != nil {
		return fail(err)
	}
	result.LinkType = kind

	done := logging.LogOperationStart(logger, "execute migration")
	defer done()

	description := fmt.Sprintf("Migrate %s from %s to %s", displayName(plan), plan.SourcePath, plan.TargetPath)
	opID, err := e.ledger.BeginOperation(ctx, types.OperationMigration, description)
	if err != nil {
		return fail(err)
	}
	result.OperationID = opID

	r := &run{e: e, plan: plan, opID: opID, progress: progress}
	moved, err := r.execute(ctx, kind, opts, manifest, result)
	result.BytesMoved = moved

	if err == nil {
		if err := e.ledger.CompleteOperation(ctx, opID, true); err != nil {
			logger.Warn().Err(err).Str("operation", opID).Msg("failed to seal operation")
		}
		result.Success = true
		types.SendProgress(progress, types.Progress{Stage: types.StageComplete, Percent: 100})
		logger.Info().
			Str("operation", opID).
			Str("source", plan.SourcePath).
			Str("target", plan.TargetPath).
			Int64("bytes", moved).
			Msg("migration complete")
		return result, nil
	}

	// Canceled between units: keep what was done for a later rollback
	if ctx.Err() != nil {
		cleanup := context.WithoutCancel(ctx)
		if ferr := r.flush(cleanup); ferr != nil {
			logger.Error().Err(ferr).Str("operation", opID).Int("unlogged", len(r.actions)-r.logged).Msg("completed steps missing from the ledger")
		}
		if serr := e.ledger.CompleteOperation(cleanup, opID, false); serr != nil {
			logger.Warn().Err(serr).Str("operation", opID).Msg("failed to seal operation")
		}
		result.Error = "migration canceled"
		logger.Warn().Str("operation", opID).Int("steps", len(r.actions)).Msg("migration canceled, completed steps kept")
		return result, errors.Wrap(ctx.Err(), errors.ErrCanceled, "migration canceled").
			WithDetail("operation", opID)
	}

	logger.Error().Err(err).Str("operation", opID).Msg("migration failed, rolling back")
	result.Error = err.Error()

	cleanup := context.WithoutCancel(ctx)
	if ferr := r.flush(cleanup); ferr != nil {
		logger.Warn().Err(ferr).Str("operation", opID).Msg("undo log incomplete in the ledger")
	}
	rb := e.undo(cleanup, r.actions, nil, progress, func(index int, a types.OperationAction) {
		marker := revertMarker(opID, index, a)
		if lerr := e.ledger.LogAction(cleanup, opID, &marker); lerr != nil {
			logger.Warn().Err(lerr).Msg("failed to log revert")
		}
	})
	if serr := e.ledger.CompleteOperation(cleanup, opID, false); serr != nil {
		logger.Warn().Err(serr).Str("operation", opID).Msg("failed to seal operation")
	}

	if rb.err == nil {
		result.RolledBack = true
		result.BytesMoved = 0
	} else {
		result.RollbackError = rb.err.Error()
		logger.Error().Err(rb.err).Str("operation", opID).Msg("automatic rollback incomplete")
	}

	return result, errors.Wrap(err, errors.ErrMigrationFailed, "migration failed").
		WithDetails(map[string]interface{}{
			"operation":  opID,
			"rolledBack": result.RolledBack,
		})
}

// preflight checks everything that can be checked without mutating and
// snapshots the source when integrity verification is requested
func (e *Engine) preflight(ctx context.Context, plan types.MigrationPlan, opts types.MigrationOptions) (types.LinkType, filesystem.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, errors.Wrap(err, errors.ErrCanceled, "migration canceled")
	}
	if strings.TrimSpace(plan.SourcePath) == "" || strings.TrimSpace(plan.TargetPath) == "" {
		return "", nil, errors.New(errors.ErrInvalidInput, "plan has no source or target path")
	}
	if paths.ContainsPath(plan.SourcePath, plan.TargetPath) || paths.ContainsPath(plan.TargetPath, plan.SourcePath) {
		return "", nil, errors.New(errors.ErrInvalidInput, "source and target paths overlap")
	}

	kind, err := e.linkType(plan, opts.LinkPreference)
	if err != nil {
		return "", nil, err
	}

	if err := e.checkSource(plan.SourcePath); err != nil {
		return "", nil, err
	}
	if filesystem.Exists(e.fs, plan.TargetPath) {
		return "", nil, errors.Newf(errors.ErrTargetExists, "target %s already exists", plan.TargetPath).
			WithDetail("target", plan.TargetPath)
	}
	if err := e.checkUnchanged(plan); err != nil {
		return "", nil, err
	}

	free, err := e.volumes.FreeSpace(plan.TargetPath)
	if err != nil {
		return "", nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to query free space for %s", plan.TargetPath)
	}
	if clampInt64(free) < plan.TotalSizeBytes {
		return "", nil, errors.Newf(errors.ErrInsufficientSpace,
			"free space at %s dropped to %d bytes, %d needed", plan.TargetPath, free, plan.TotalSizeBytes).
			WithDetails(map[string]interface{}{
				"required":  plan.TotalSizeBytes,
				"available": free,
			})
	}

	if !opts.VerifyIntegrity {
		return kind, nil, nil
	}
	manifest, err := filesystem.BuildManifest(ctx, e.fs, plan.SourcePath)
	if err != nil {
		return "", nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to checksum %s", plan.SourcePath)
	}
	return kind, manifest, nil
}

func (e *Engine) linkType(plan types.MigrationPlan, pref types.LinkPreference) (types.LinkType, error) {
	var kind types.LinkType
	switch pref {
	case types.LinkPreferenceSymlink:
		kind = types.LinkTypeSymbolicLink
	case types.LinkPreferenceJunction:
		kind = types.LinkTypeJunction
	case types.LinkPreferenceAuto, "":
		kind = plan.RecommendedLinkType
		if kind == "" || !e.links.Supports(kind, plan.SourcePath) {
			kind = types.LinkTypeSymbolicLink
			if !e.links.Supports(kind, plan.SourcePath) {
				kind = types.LinkTypeJunction
			}
		}
	default:
		return "", errors.Newf(errors.ErrInvalidInput, "unknown link preference %q", pref)
	}

	if !e.links.Supports(kind, plan.SourcePath) {
		return "", errors.Newf(errors.ErrLinkUnsupported, "%s links cannot be created at %s", kind, plan.SourcePath).
			WithDetail("linkType", string(kind))
	}
	return kind, nil
}

// checkUnchanged compares the top-level entries of the source with the
// plan. External modification is detected, not prevented.
func (e *Engine) checkUnchanged(plan types.MigrationPlan) error {
	entries, err := e.fs.ReadDir(plan.SourcePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to list %s", plan.SourcePath)
	}
	current := make([]string, 0, len(entries))
	for _, entry := range entries {
		current = append(current, filepath.Join(plan.SourcePath, entry.Name()))
	}
	planned := make([]string, 0, len(plan.FileOperations))
	for _, op := range plan.FileOperations {
		planned = append(planned, op.Source)
	}
	sort.Strings(current)
	sort.Strings(planned)

	if strings.Join(current, "\x00") != strings.Join(planned, "\x00") {
		return errors.Newf(errors.ErrSourceChanged, "%s changed since the plan was created", plan.SourcePath).
			WithDetails(map[string]interface{}{
				"planned": len(planned),
				"current": len(current),
			})
	}
	return nil
}

// execute runs the mutating steps and returns the bytes moved
func (r *run) execute(ctx context.Context, kind types.LinkType, opts types.MigrationOptions, manifest filesystem.Manifest, result *types.MigrationResult) (int64, error) {
	e, plan := r.e, r.plan
	logger := logging.GetLogger("migration").With().Str("operation", r.opID).Logger()

	// Target directory, recording the topmost directory that had to be made
	created := topmostMissing(e.fs, plan.TargetPath)
	if err := e.fs.MkdirAll(plan.TargetPath, 0755); err != nil {
		return 0, errors.Wrapf(err, errors.ErrMoveFailed, "failed to create %s", plan.TargetPath)
	}
	if err := r.record(ctx, types.OperationAction{
		ActionType:    types.ActionCreateDirectory,
		Description:   "Create " + plan.TargetPath,
		OriginalValue: created,
		NewValue:      plan.TargetPath,
		CanRollback:   true,
	}); err != nil {
		return 0, err
	}

	var moved int64
	for i, op := range plan.FileOperations {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		types.SendProgress(r.progress, types.Progress{
			Stage:       types.StageMove,
			Percent:     movePercent(moved, plan.TotalSizeBytes, i, len(plan.FileOperations)),
			CurrentItem: op.Source,
		})

		if err := filesystem.Move(ctx, e.fs, op.Source, op.Destination); err != nil {
			if stderrors.Is(err, filesystem.ErrSourceNotRemoved) {
				// The destination is complete; undo must clear what is left
				// of the source before moving it back
				if lerr := r.record(ctx, types.OperationAction{
					ActionType:    types.ActionCopyFile,
					Description:   "Copy " + filepath.Base(op.Source),
					OriginalValue: op.Source,
					NewValue:      op.Destination,
					CanRollback:   true,
				}); lerr != nil {
					logger.Error().Err(lerr).Str("source", op.Source).Msg("failed to log copied unit")
				}
			}
			if ctx.Err() != nil {
				return moved, ctx.Err()
			}
			return moved, errors.Wrapf(err, errors.ErrMoveFailed, "failed to move %s", op.Source).
				WithDetail("destination", op.Destination)
		}
		logger.Debug().Str("source", op.Source).Str("target", op.Destination).Msg("moved")
		moved += op.SizeBytes

		if err := r.record(ctx, types.OperationAction{
			ActionType:    types.ActionMoveFile,
			Description:   "Move " + filepath.Base(op.Source),
			OriginalValue: op.Source,
			NewValue:      op.Destination,
			CanRollback:   true,
		}); err != nil {
			return moved, err
		}
	}

	if manifest != nil {
		types.SendProgress(r.progress, types.Progress{Stage: types.StageVerify, Percent: 100, CurrentItem: plan.TargetPath})
		after, err := filesystem.BuildManifest(ctx, e.fs, plan.TargetPath)
		if err != nil {
			return moved, errors.Wrapf(err, errors.ErrFileAccess, "failed to checksum %s", plan.TargetPath)
		}
		if diff := manifest.Diff(after); len(diff) > 0 {
			return moved, errors.Newf(errors.ErrIntegrityMismatch, "%d entries differ after the move", len(diff)).
				WithDetail("paths", diff)
		}
	}

	// The emptied install directory makes way for the link
	info, err := e.fs.Stat(plan.SourcePath)
	if err != nil {
		return moved, errors.Wrapf(err, errors.ErrSourceMissing, "install directory %s vanished", plan.SourcePath)
	}
	empty, err := filesystem.IsEmptyDir(e.fs, plan.SourcePath)
	if err != nil {
		return moved, errors.Wrapf(err, errors.ErrFileAccess, "failed to list %s", plan.SourcePath)
	}
	if !empty {
		return moved, errors.Newf(errors.ErrSourceChanged, "new entries appeared in %s during the move", plan.SourcePath)
	}
	if err := e.fs.Remove(plan.SourcePath); err != nil {
		return moved, errors.Wrapf(err, errors.ErrMoveFailed, "failed to remove %s", plan.SourcePath)
	}
	if err := r.record(ctx, types.OperationAction{
		ActionType:    types.ActionRemoveDirectory,
		Description:   "Remove " + plan.SourcePath,
		OriginalValue: plan.SourcePath,
		NewValue:      strconv.FormatUint(uint64(info.Mode().Perm()), 8),
		CanRollback:   true,
	}); err != nil {
		return moved, err
	}

	if err := ctx.Err(); err != nil {
		return moved, err
	}
	types.SendProgress(r.progress, types.Progress{Stage: types.StageLink, Percent: 100, CurrentItem: plan.SourcePath})
	if err := e.links.CreateLink(ctx, kind, plan.SourcePath, plan.TargetPath); err != nil {
		return moved, err
	}
	if err := r.record(ctx, types.OperationAction{
		ActionType:    types.ActionCreateLink,
		Description:   fmt.Sprintf("Create %s %s", kind, plan.SourcePath),
		OriginalValue: plan.SourcePath,
		NewValue:      plan.TargetPath,
		CanRollback:   true,
	}); err != nil {
		return moved, err
	}

	if opts.UpdateRegistry && e.registry != nil {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		if err := r.updateRegistry(ctx, result); err != nil {
			return moved, err
		}
	}

	return moved, nil
}

// updateRegistry backs up and rewrites references to the old location.
// Individual value failures are reported, not fatal; the link keeps the
// old path working.
func (r *run) updateRegistry(ctx context.Context, result *types.MigrationResult) error {
	e, plan := r.e, r.plan
	logger := logging.GetLogger("migration")
	types.SendProgress(r.progress, types.Progress{Stage: types.StageRegistry, CurrentItem: plan.SourcePath})

	refs, err := e.registry.FindReferences(ctx, plan.SourcePath)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		logger.Debug().Str("path", plan.SourcePath).Msg("no registry references to update")
		return nil
	}

	backupID, err := e.registry.CreateBackup(ctx, refs)
	if err != nil {
		return err
	}
	if err := r.record(ctx, types.OperationAction{
		ActionType:    types.ActionRegistryBackup,
		Description:   fmt.Sprintf("Back up %d registry values", len(refs)),
		OriginalValue: backupID,
		CanRollback:   true,
	}); err != nil {
		return err
	}

	updated, err := e.registry.UpdateReferences(ctx, refs, plan.SourcePath, plan.TargetPath)
	if updated != nil {
		result.RegistryReport = updated.Report(plan.SourcePath, plan.TargetPath)
		if lerr := r.record(ctx, types.OperationAction{
			ActionType:    types.ActionRegistryUpdate,
			Description:   fmt.Sprintf("Update %d registry values", updated.UpdatedCount),
			OriginalValue: backupID,
			NewValue:      updated.OperationID,
			CanRollback:   backupID != "",
		}); lerr != nil && err == nil {
			err = lerr
		}
		if updated.FailedCount > 0 {
			logger.Warn().
				Int("failed", updated.FailedCount).
				Int("updated", updated.UpdatedCount).
				Msg("some registry values could not be updated")
		}
	}
	return err
}

// topmostMissing returns the highest ancestor of path, or path itself,
// that does not exist yet. It is "" when path already exists.
func topmostMissing(fsys types.FS, path string) string {
	top := ""
	for p := filepath.Clean(path); !filesystem.Exists(fsys, p); p = filepath.Dir(p) {
		top = p
		if filepath.Dir(p) == p {
			break
		}
	}
	return top
}

func movePercent(moved, total int64, index, count int) float64 {
	if total > 0 {
		return float64(moved) * 100 / float64(total)
	}
	if count == 0 {
		return 100
	}
	return float64(index) * 100 / float64(count)
}

func displayName(plan types.MigrationPlan) string {
	if plan.Entry.Name != "" {
		return plan.Entry.Name
	}
	return filepath.Base(plan.SourcePath)
}
