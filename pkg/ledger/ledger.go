package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/types"
)

// DefaultRetention is how long records are kept and shown
const DefaultRetention = 30 * 24 * time.Hour

// Logger is the OperationLogger
type Logger struct {
	store     Store
	retention time.Duration
	now       func() time.Time

	// one mutex per operation id serializes appends to that record
	locks sync.Map
}

// Option configures a Logger
type Option func(*Logger)

// WithRetention sets the retention window
func WithRetention(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.retention = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a logger over store
func New(store Store, opts ...Option) *Logger {
	l := &Logger{
		store:     store,
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Retention returns the configured retention window
func (l *Logger) Retention() time.Duration {
	return l.retention
}

func (l *Logger) lock(id string) func() {
	v, _ := l.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// BeginOperation creates a new open record and returns its id. Expired
// records are pruned first.
func (l *Logger) BeginOperation(ctx context.Context, opType types.OperationType, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", errors.New(errors.ErrInvalidInput, "operation description is empty")
	}

	if _, err := l.Prune(ctx); err != nil {
		logger := logging.GetLogger("ledger")
		logger.Warn().Err(err).Msg("failed to prune expired operations")
	}

	rec := &types.OperationRecord{
		ID:          uuid.NewString(),
		Type:        opType,
		Description: description,
		StartTime:   l.now(),
		Actions:     []types.OperationAction{},
	}
	if err := l.store.Put(ctx, rec); err != nil {
		return "", errors.Wrap(err, errors.ErrStore, "failed to record operation")
	}

	logger := logging.GetLogger("ledger")
	logger.Debug().
		Str("operation", rec.ID).
		Str("type", string(opType)).
		Str("description", description).
		Msg("operation started")
	return rec.ID, nil
}

// LogAction appends action to an open operation. A zero timestamp is
// filled in from the clock.
func (l *Logger) LogAction(ctx context.Context, operationID string, action *types.OperationAction) error {
	if action == nil {
		return errors.New(errors.ErrInvalidInput, "action is nil")
	}

	unlock := l.lock(operationID)
	defer unlock()

	rec, err := l.load(ctx, operationID)
	if err != nil {
		return err
	}
	if !rec.IsOpen() {
		return errors.Newf(errors.ErrOperationSealed, "operation %s is already completed", operationID)
	}

	a := *action
	if a.Timestamp.IsZero() {
		a.Timestamp = l.now()
	}
	rec.Actions = append(rec.Actions, a)

	if err := l.store.Put(ctx, rec); err != nil {
		return errors.Wrap(err, errors.ErrStore, "failed to record action")
	}

	logger := logging.GetLogger("ledger")
	logger.Trace().
		Str("operation", operationID).
		Str("action", a.ActionType).
		Bool("canRollback", a.CanRollback).
		Msg("action logged")
	return nil
}

// CompleteOperation seals the record. EndTime never precedes StartTime.
func (l *Logger) CompleteOperation(ctx context.Context, operationID string, success bool) error {
	unlock := l.lock(operationID)
	defer unlock()

	rec, err := l.load(ctx, operationID)
	if err != nil {
		return err
	}
	if !rec.IsOpen() {
		return errors.Newf(errors.ErrOperationSealed, "operation %s is already completed", operationID)
	}

	end := l.now()
	if end.Before(rec.StartTime) {
		end = rec.StartTime
	}
	rec.EndTime = &end
	rec.Success = &success

	if err := l.store.Put(ctx, rec); err != nil {
		return errors.Wrap(err, errors.ErrStore, "failed to complete operation")
	}

	logger := logging.GetLogger("ledger")
	logger.Debug().
		Str("operation", operationID).
		Bool("success", success).
		Dur("duration", end.Sub(rec.StartTime)).
		Msg("operation completed")
	return nil
}

// GetOperation returns a copy of the record, or nil when it does not exist
func (l *Logger) GetOperation(ctx context.Context, operationID string) (*types.OperationRecord, error) {
	rec, err := l.store.Get(ctx, operationID)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStore, "failed to read operation %s", operationID)
	}
	return rec.Clone(), nil
}

func (l *Logger) load(ctx context.Context, operationID string) (*types.OperationRecord, error) {
	rec, err := l.store.Get(ctx, operationID)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStore, "failed to read operation %s", operationID)
	}
	if rec == nil {
		return nil, errors.Newf(errors.ErrOperationNotFound, "operation %s not found", operationID).
			WithDetail("operation", operationID)
	}
	return rec, nil
}

// HistoryQuery filters GetHistory. A nil Since means the start of the
// retention window; a Limit of zero or less means no limit.
type HistoryQuery struct {
	Since *time.Time
	Limit int
}

// GetHistory returns records started at or after the effective cutoff,
// newest first. The cutoff is never earlier than the retention window.
func (l *Logger) GetHistory(ctx context.Context, q HistoryQuery) ([]*types.OperationRecord, error) {
	cutoff := l.now().Add(-l.retention)
	if q.Since != nil && q.Since.After(cutoff) {
		cutoff = *q.Since
	}

	all, err := l.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStore, "failed to list operations")
	}

	out := make([]*types.OperationRecord, 0, len(all))
	for _, rec := range all {
		if !rec.StartTime.Before(cutoff) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Prune deletes sealed records that started before the retention window
// and returns how many were removed. Open records are kept.
func (l *Logger) Prune(ctx context.Context) (int, error) {
	cutoff := l.now().Add(-l.retention)

	all, err := l.store.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrStore, "failed to list operations")
	}

	removed := 0
	for _, rec := range all {
		if rec.IsOpen() || !rec.StartTime.Before(cutoff) {
			continue
		}
		if err := l.store.Delete(ctx, rec.ID); err != nil {
			return removed, errors.Wrapf(err, errors.ErrStore, "failed to delete operation %s", rec.ID)
		}
		l.locks.Delete(rec.ID)
		removed++
	}

	if removed > 0 {
		logger := logging.GetLogger("ledger")
		logger.Debug().Int("removed", removed).Msg("pruned expired operations")
	}
	return removed, nil
}
