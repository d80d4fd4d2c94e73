package registry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/types"
)

// DefaultMaxDepth bounds how far below each root the scan descends
const DefaultMaxDepth = 4

// Updater is the RegistryUpdater
type Updater struct {
	hive     Hive
	backups  BackupStore
	maxDepth int
	now      func() time.Time
}

// Option configures an Updater
type Option func(*Updater)

// WithMaxDepth limits the scan depth below each root
func WithMaxDepth(depth int) Option {
	return func(u *Updater) {
		if depth >= 0 {
			u.maxDepth = depth
		}
	}
}

// WithClock replaces time.Now for timestamps
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		if now != nil {
			u.now = now
		}
	}
}

// New creates an updater over hive, keeping backups and reports in backups
func New(hive Hive, backups BackupStore, opts ...Option) *Updater {
	u := &Updater{
		hive:     hive,
		backups:  backups,
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// FindReferences returns every string value below the hive roots that
// contains path, compared case-insensitively. No match is not an error.
func (u *Updater) FindReferences(ctx context.Context, path string) ([]types.RegistryReference, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(errors.ErrInvalidInput, "path to search for is empty")
	}

	logger := logging.GetLogger("registry")
	done := logging.LogOperationStart(logger, "find registry references")
	defer done()

	refs := []types.RegistryReference{}
	for _, root := range u.hive.Roots() {
		err := u.hive.Walk(ctx, root, u.maxDepth, func(keyPath string, values []Value) error {
			for _, v := range values {
				if ContainsFold(v.Data, path) {
					refs = append(refs, types.RegistryReference{
						KeyPath:   keyPath,
						ValueName: v.Name,
						ValueData: v.Data,
						ValueType: v.Type,
					})
				}
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return refs, errors.Wrap(ctx.Err(), errors.ErrCanceled, "registry scan canceled")
			}
			return refs, errors.Wrapf(err, errors.ErrRegistryRead, "failed to scan %s", root)
		}
	}

	logger.Debug().Str("path", path).Int("references", len(refs)).Msg("registry scan complete")
	return refs, nil
}

// CreateBackup snapshots the current data of refs. An empty set is a no-op
// and yields an empty id.
func (u *Updater) CreateBackup(ctx context.Context, refs []types.RegistryReference) (string, error) {
	if len(refs) == 0 {
		return "", nil
	}

	backup := &Backup{
		ID:         uuid.NewString(),
		CreatedAt:  u.now(),
		References: make([]types.RegistryReference, 0, len(refs)),
	}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(err, errors.ErrCanceled, "registry backup canceled")
		}
		current, err := u.hive.ReadValue(ref.KeyPath, ref.ValueName)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrRegistryRead, `failed to back up %s\%s`, ref.KeyPath, ref.ValueName)
		}
		backup.References = append(backup.References, types.RegistryReference{
			KeyPath:   ref.KeyPath,
			ValueName: current.Name,
			ValueData: current.Data,
			ValueType: current.Type,
		})
	}

	if err := u.backups.SaveBackup(ctx, backup); err != nil {
		return "", errors.Wrap(err, errors.ErrStore, "failed to save registry backup")
	}

	logger := logging.GetLogger("registry")
	logger.Debug().
		Str("backup", backup.ID).
		Int("values", len(backup.References)).
		Msg("created registry backup")
	return backup.ID, nil
}

// RestoreBackup writes every backed up value back and returns how many
// were restored. All values are attempted even when some fail.
func (u *Updater) RestoreBackup(ctx context.Context, backupID string) (int, error) {
	if strings.TrimSpace(backupID) == "" {
		return 0, errors.New(errors.ErrBackupNotFound, "backup id is empty")
	}

	backup, err := u.backups.LoadBackup(ctx, backupID)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrStore, "failed to load backup %s", backupID)
	}
	if backup == nil {
		return 0, errors.Newf(errors.ErrBackupNotFound, "registry backup %s not found", backupID).
			WithDetail("backup", backupID)
	}

	logger := logging.GetLogger("registry")
	var result *multierror.Error
	restored := 0
	for _, ref := range backup.References {
		if err := ctx.Err(); err != nil {
			return restored, errors.Wrap(err, errors.ErrCanceled, "registry restore canceled")
		}
		v := Value{Name: ref.ValueName, Data: ref.ValueData, Type: ref.ValueType}
		if err := u.hive.WriteValue(ref.KeyPath, v); err != nil {
			logger.Error().Err(err).Str("key", ref.KeyPath).Str("value", ref.ValueName).Msg("failed to restore registry value")
			result = multierror.Append(result, err)
			continue
		}
		restored++
	}

	if err := result.ErrorOrNil(); err != nil {
		return restored, errors.Wrapf(err, errors.ErrRegistryWrite, "failed to restore %d of %d values", len(result.Errors), len(backup.References))
	}

	logger.Debug().Str("backup", backupID).Int("values", restored).Msg("restored registry backup")
	return restored, nil
}

// UpdateReferences rewrites oldPath to newPath inside each reference.
// Failed writes are counted in the result rather than returned. The
// mutations are recorded under the result's operation id.
func (u *Updater) UpdateReferences(ctx context.Context, refs []types.RegistryReference, oldPath, newPath string) (*types.RegistryUpdateResult, error) {
	if strings.TrimSpace(oldPath) == "" || strings.TrimSpace(newPath) == "" {
		return nil, errors.New(errors.ErrInvalidInput, "old and new paths are required")
	}

	logger := logging.GetLogger("registry")
	result := &types.RegistryUpdateResult{
		OperationID: uuid.NewString(),
		Entries:     make([]types.RegistryUpdateEntry, 0, len(refs)),
		Timestamp:   u.now(),
	}

	var canceled error
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			canceled = errors.Wrap(err, errors.ErrCanceled, "registry update canceled")
			break
		}

		newData, n := ReplaceAllFold(ref.ValueData, oldPath, newPath)
		entry := types.RegistryUpdateEntry{
			Reference:    ref,
			NewValueData: newData,
			Replacements: n,
		}

		switch {
		case n == 0:
			entry.Error = "value does not contain " + oldPath
		default:
			err := u.hive.WriteValue(ref.KeyPath, Value{Name: ref.ValueName, Data: newData, Type: ref.ValueType})
			if err != nil {
				entry.Error = err.Error()
				logger.Error().Err(err).Str("key", ref.KeyPath).Str("value", ref.ValueName).Msg("failed to update registry value")
			} else {
				entry.Success = true
				logger.Debug().
					Str("key", ref.KeyPath).
					Str("value", ref.ValueName).
					Int("replacements", n).
					Msg("updated registry value")
			}
		}

		if entry.Success {
			result.UpdatedCount++
		} else {
			result.FailedCount++
		}
		result.Entries = append(result.Entries, entry)
	}

	if err := u.backups.SaveReport(ctx, result.Report(oldPath, newPath)); err != nil {
		return result, errors.Wrap(err, errors.ErrStore, "failed to record registry update")
	}
	if canceled != nil {
		return result, canceled
	}
	return result, nil
}

// GenerateReport returns the mutations recorded for operationID. Unknown
// ids yield an empty report.
func (u *Updater) GenerateReport(ctx context.Context, operationID string) (*types.RegistryUpdateReport, error) {
	report, err := u.backups.LoadReport(ctx, operationID)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStore, "failed to load report %s", operationID)
	}
	if report == nil {
		return &types.RegistryUpdateReport{
			OperationID: operationID,
			Entries:     []types.RegistryUpdateEntry{},
		}, nil
	}
	return report, nil
}
