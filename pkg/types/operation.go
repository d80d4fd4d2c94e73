package types

import "time"

// OperationType classifies ledger records
type OperationType string

const (
	OperationMigration      OperationType = "Migration"
	OperationCleanup        OperationType = "Cleanup"
	OperationRegistryUpdate OperationType = "RegistryUpdate"
	OperationRollback       OperationType = "Rollback"
)

// Action types written by the migration engine. Rollback dispatches on these.
const (
	ActionCreateDirectory = "create_directory"
	ActionMoveFile        = "move"
	ActionCopyFile        = "copy"
	ActionRemoveDirectory = "remove_directory"
	ActionCreateLink      = "create_link"
	ActionRegistryBackup  = "registry_backup"
	ActionRegistryUpdate  = "registry_update"
	ActionRevert          = "revert"
)

// OperationAction is one step of an operation. OriginalValue and NewValue
// carry whatever the step needs to be reversed.
type OperationAction struct {
	ActionType    string    `json:"actionType" yaml:"actionType"`
	Description   string    `json:"description" yaml:"description"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	OriginalValue string    `json:"originalValue,omitempty" yaml:"originalValue,omitempty"`
	NewValue      string    `json:"newValue,omitempty" yaml:"newValue,omitempty"`
	CanRollback   bool      `json:"canRollback" yaml:"canRollback"`
}

// OperationRecord is a ledger entry. EndTime and Success stay nil until the
// operation is completed.
type OperationRecord struct {
	ID          string            `json:"id" yaml:"id"`
	Type        OperationType     `json:"type" yaml:"type"`
	Description string            `json:"description" yaml:"description"`
	StartTime   time.Time         `json:"startTime" yaml:"startTime"`
	EndTime     *time.Time        `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	Success     *bool             `json:"success,omitempty" yaml:"success,omitempty"`
	Actions     []OperationAction `json:"actions" yaml:"actions"`
}

// IsOpen reports whether the operation still accepts actions
func (r *OperationRecord) IsOpen() bool {
	return r.EndTime == nil
}

// IsRollbackable is true iff every logged action can be reversed
func (r *OperationRecord) IsRollbackable() bool {
	for _, a := range r.Actions {
		if !a.CanRollback {
			return false
		}
	}
	return true
}

// Succeeded is false for open and failed operations
func (r *OperationRecord) Succeeded() bool {
	return r.Success != nil && *r.Success
}

// Clone returns a deep copy so callers can never mutate ledger state
func (r *OperationRecord) Clone() *OperationRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	if r.Success != nil {
		ok := *r.Success
		c.Success = &ok
	}
	c.Actions = make([]OperationAction, len(r.Actions))
	copy(c.Actions, r.Actions)
	return &c
}
