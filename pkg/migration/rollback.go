package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/filesystem"
	"github.com/arthur-debert/relocator/pkg/ledger"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/paths"
	"github.com/arthur-debert/relocator/pkg/types"
)

// undoResult summarizes one replay of an undo log
type undoResult struct {
	reverted     int
	failed       int
	errs         *multierror.Error
	stateMissing bool
	err          error
}

// Rollback reverses a sealed migration by undoing its reversible actions
// in reverse order. The replay is itself recorded as a Rollback operation.
func (e *Engine) Rollback(ctx context.Context, operationID string, progress chan<- types.Progress) (*types.RollbackResult, error) {
	if strings.TrimSpace(operationID) == "" {
		return nil, errors.New(errors.ErrInvalidInput, "operation id is required")
	}

	rec, err := e.ledger.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Newf(errors.ErrOperationNotFound, "operation %s not found", operationID).
			WithDetail("operation", operationID)
	}
	if rec.IsOpen() {
		return nil, errors.Newf(errors.ErrInvalidInput, "operation %s is still in progress", operationID)
	}
	if rec.Type != types.OperationMigration {
		return nil, errors.Newf(errors.ErrInvalidInput, "operation %s is a %s, only migrations can be rolled back", operationID, rec.Type)
	}

	skip, err := e.revertedIndices(ctx, rec)
	if err != nil {
		return nil, err
	}
	if pendingSteps(rec.Actions, skip) == 0 {
		return nil, errors.Newf(errors.ErrRollbackStateMissing, "operation %s has nothing left to roll back", operationID).
			WithDetail("operation", operationID)
	}

	logger := logging.GetLogger("migration")
	done := logging.LogOperationStart(logger, "rollback")
	defer done()

	rbID, err := e.ledger.BeginOperation(ctx, types.OperationRollback, "Roll back "+rec.Description)
	if err != nil {
		return nil, err
	}

	res := e.undo(ctx, rec.Actions, skip, progress, func(index int, a types.OperationAction) {
		marker := revertMarker(operationID, index, a)
		if lerr := e.ledger.LogAction(ctx, rbID, &marker); lerr != nil {
			logger.Warn().Err(lerr).Msg("failed to log revert")
		}
	})

	if serr := e.ledger.CompleteOperation(context.WithoutCancel(ctx), rbID, res.err == nil); serr != nil {
		logger.Warn().Err(serr).Str("operation", rbID).Msg("failed to seal rollback")
	}

	result := &types.RollbackResult{
		OperationID:         operationID,
		RollbackOperationID: rbID,
		Success:             res.err == nil,
		StepsReverted:       res.reverted,
		StepsFailed:         res.failed,
	}
	if res.errs != nil {
		for _, err := range res.errs.Errors {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if res.err != nil {
		logger.Error().Err(res.err).Str("operation", operationID).Msg("rollback incomplete")
		return result, res.err
	}
	types.SendProgress(progress, types.Progress{Stage: types.StageComplete, Percent: 100})
	logger.Info().Str("operation", operationID).Int("steps", res.reverted).Msg("rollback complete")
	return result, nil
}

// undo replays actions in reverse. A failed filesystem or link step stops
// the replay, since earlier steps assume it was reversed; registry steps
// are independent and a failure there does not stop it.
func (e *Engine) undo(ctx context.Context, actions []types.OperationAction, skip map[int]bool, progress chan<- types.Progress, onReverted func(int, types.OperationAction)) undoResult {
	var res undoResult
	pending := pendingSteps(actions, skip)
	done := 0

	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if !a.CanRollback || skip[i] || a.ActionType == types.ActionRevert {
			continue
		}
		if err := ctx.Err(); err != nil {
			res.errs = multierror.Append(res.errs, err)
			res.err = errors.Wrap(err, errors.ErrCanceled, "rollback canceled")
			return res
		}

		types.SendProgress(progress, types.Progress{
			Stage:       types.StageRollback,
			Percent:     float64(done) * 100 / float64(pending),
			CurrentItem: a.Description,
		})
		done++

		if err := e.undoAction(ctx, a); err != nil {
			res.failed++
			res.errs = multierror.Append(res.errs, fmt.Errorf("%s: %w", a.Description, err))
			if errors.IsErrorCode(err, errors.ErrRollbackStateMissing) {
				res.stateMissing = true
			}
			if !independentStep(a) {
				break
			}
			continue
		}
		res.reverted++
		if onReverted != nil {
			onReverted(i, a)
		}
	}

	if err := res.errs.ErrorOrNil(); err != nil {
		code := errors.ErrRollbackFailed
		if res.stateMissing {
			code = errors.ErrRollbackStateMissing
		}
		res.err = errors.Wrapf(err, code, "%d rollback steps failed", res.failed).
			WithDetail("reverted", res.reverted)
	}
	return res
}

func independentStep(a types.OperationAction) bool {
	return a.ActionType == types.ActionRegistryBackup || a.ActionType == types.ActionRegistryUpdate
}

// undoAction reverses one logged action
func (e *Engine) undoAction(ctx context.Context, a types.OperationAction) error {
	logger := logging.GetLogger("migration")

	switch a.ActionType {
	case types.ActionRegistryBackup:
		// Restoring happens when the update itself is reversed
		return nil

	case types.ActionRegistryUpdate:
		if e.registry == nil {
			return errors.New(errors.ErrRollbackFailed, "no registry access to restore the backup")
		}
		if _, err := e.registry.RestoreBackup(ctx, a.OriginalValue); err != nil {
			if errors.IsErrorCode(err, errors.ErrBackupNotFound) {
				return errors.Wrapf(err, errors.ErrRollbackStateMissing, "registry backup %s is gone", a.OriginalValue)
			}
			return errors.Wrap(err, errors.ErrRollbackFailed, "failed to restore registry backup")
		}
		logger.Debug().Str("backup", a.OriginalValue).Msg("restored registry values")
		return nil

	case types.ActionCreateLink:
		link, err := e.links.GetLinkInfo(a.OriginalValue)
		if err != nil {
			return errors.Wrap(err, errors.ErrRollbackFailed, "failed to inspect link")
		}
		if link == nil {
			return errors.Newf(errors.ErrRollbackStateMissing, "no link at %s", a.OriginalValue)
		}
		if !paths.SamePath(link.TargetPath, a.NewValue) {
			return errors.Newf(errors.ErrRollbackFailed, "link at %s now points to %s, not %s", a.OriginalValue, link.TargetPath, a.NewValue)
		}
		if _, err := e.links.RemoveLink(ctx, a.OriginalValue); err != nil {
			return errors.Wrap(err, errors.ErrRollbackFailed, "failed to remove link")
		}
		logger.Debug().Str("link", a.OriginalValue).Msg("removed link")
		return nil

	case types.ActionRemoveDirectory:
		if info, err := e.fs.Lstat(a.OriginalValue); err == nil {
			if info.IsDir() {
				return nil
			}
			return errors.Newf(errors.ErrRollbackFailed, "%s is occupied and cannot be recreated", a.OriginalValue)
		}
		perm := fs.FileMode(0755)
		if p, err := strconv.ParseUint(a.NewValue, 8, 32); err == nil {
			perm = fs.FileMode(p)
		}
		if err := e.fs.MkdirAll(a.OriginalValue, perm); err != nil {
			return errors.Wrapf(err, errors.ErrRollbackFailed, "failed to recreate %s", a.OriginalValue)
		}
		logger.Debug().Str("path", a.OriginalValue).Msg("recreated install directory")
		return nil

	case types.ActionMoveFile:
		if !filesystem.Exists(e.fs, a.NewValue) {
			return errors.Newf(errors.ErrRollbackStateMissing, "%s no longer exists", a.NewValue)
		}
		if filesystem.Exists(e.fs, a.OriginalValue) {
			return errors.Newf(errors.ErrRollbackFailed, "%s is occupied", a.OriginalValue)
		}
		if err := filesystem.Move(ctx, e.fs, a.NewValue, a.OriginalValue); err != nil {
			return errors.Wrapf(err, errors.ErrRollbackFailed, "failed to move %s back", a.NewValue)
		}
		logger.Debug().Str("source", a.NewValue).Str("target", a.OriginalValue).Msg("moved back")
		return nil

	case types.ActionCopyFile:
		// The copy is the only complete version; what is left of the
		// source goes first
		if !filesystem.Exists(e.fs, a.NewValue) {
			return errors.Newf(errors.ErrRollbackStateMissing, "%s no longer exists", a.NewValue)
		}
		if err := e.fs.RemoveAll(a.OriginalValue); err != nil {
			return errors.Wrapf(err, errors.ErrRollbackFailed, "failed to clear the remains of %s", a.OriginalValue)
		}
		if err := filesystem.Move(ctx, e.fs, a.NewValue, a.OriginalValue); err != nil {
			return errors.Wrapf(err, errors.ErrRollbackFailed, "failed to move %s back", a.NewValue)
		}
		logger.Debug().Str("source", a.NewValue).Str("target", a.OriginalValue).Msg("restored copied unit")
		return nil

	case types.ActionCreateDirectory:
		return e.removeCreated(a.NewValue, a.OriginalValue)

	default:
		return errors.Newf(errors.ErrRollbackFailed, "unknown action %q", a.ActionType)
	}
}

// removeCreated removes dir and its empty parents up to and including top.
// Directories that are already gone count as removed.
func (e *Engine) removeCreated(dir, top string) error {
	if top == "" {
		top = dir
	}
	for p := filepath.Clean(dir); ; p = filepath.Dir(p) {
		if filesystem.Exists(e.fs, p) {
			empty, err := filesystem.IsEmptyDir(e.fs, p)
			if err != nil {
				return errors.Wrapf(err, errors.ErrRollbackFailed, "failed to list %s", p)
			}
			if !empty {
				return errors.Newf(errors.ErrRollbackFailed, "%s is not empty", p)
			}
			if err := e.fs.Remove(p); err != nil {
				return errors.Wrapf(err, errors.ErrRollbackFailed, "failed to remove %s", p)
			}
		}
		if paths.SamePath(p, top) || filepath.Dir(p) == p {
			return nil
		}
	}
}

func revertMarker(operationID string, index int, a types.OperationAction) types.OperationAction {
	return types.OperationAction{
		ActionType:    types.ActionRevert,
		Description:   "Revert: " + a.Description,
		OriginalValue: strconv.Itoa(index),
		NewValue:      operationID,
		CanRollback:   false,
	}
}

// revertedIndices collects the actions of rec that were already reversed,
// by the automatic rollback (markers on rec) or by earlier Rollback
// operations (markers on their own records)
func (e *Engine) revertedIndices(ctx context.Context, rec *types.OperationRecord) (map[int]bool, error) {
	skip := map[int]bool{}
	collect := func(actions []types.OperationAction) {
		for _, a := range actions {
			if a.ActionType != types.ActionRevert || a.NewValue != rec.ID {
				continue
			}
			if i, err := strconv.Atoi(a.OriginalValue); err == nil {
				skip[i] = true
			}
		}
	}
	collect(rec.Actions)

	since := rec.StartTime
	later, err := e.ledger.GetHistory(ctx, ledger.HistoryQuery{Since: &since})
	if err != nil {
		return nil, err
	}
	for _, r := range later {
		if r.Type == types.OperationRollback {
			collect(r.Actions)
		}
	}
	return skip, nil
}

func pendingSteps(actions []types.OperationAction, skip map[int]bool) int {
	n := 0
	for i, a := range actions {
		if a.CanRollback && !skip[i] && a.ActionType != types.ActionRevert {
			n++
		}
	}
	return n
}
