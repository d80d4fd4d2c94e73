package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrCanceled     ErrorCode = "CANCELED"

	// Configuration errors
	ErrConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Naming errors
	ErrTemplateInvalid ErrorCode = "TEMPLATE_INVALID"
	ErrNameConflict    ErrorCode = "NAME_CONFLICT"

	// Precondition failures. These abort before anything is mutated.
	ErrInsufficientSpace ErrorCode = "INSUFFICIENT_SPACE"
	ErrSourceMissing     ErrorCode = "SOURCE_MISSING"
	ErrSourceChanged     ErrorCode = "SOURCE_CHANGED"
	ErrTargetMissing     ErrorCode = "TARGET_MISSING"
	ErrTargetExists      ErrorCode = "TARGET_EXISTS"
	ErrLinkExists        ErrorCode = "LINK_EXISTS"
	ErrLinkUnsupported   ErrorCode = "LINK_UNSUPPORTED"

	// Mutation failures
	ErrMoveFailed        ErrorCode = "MOVE_FAILED"
	ErrLinkCreate        ErrorCode = "LINK_CREATE"
	ErrLinkRemove        ErrorCode = "LINK_REMOVE"
	ErrRegistryRead      ErrorCode = "REGISTRY_READ"
	ErrRegistryWrite     ErrorCode = "REGISTRY_WRITE"
	ErrIntegrityMismatch ErrorCode = "INTEGRITY_MISMATCH"
	ErrMigrationFailed   ErrorCode = "MIGRATION_FAILED"

	// Rollback failures
	ErrRollbackFailed       ErrorCode = "ROLLBACK_FAILED"
	ErrRollbackStateMissing ErrorCode = "ROLLBACK_STATE_MISSING"

	// Ledger and persistence errors
	ErrOperationNotFound ErrorCode = "OPERATION_NOT_FOUND"
	ErrOperationSealed   ErrorCode = "OPERATION_SEALED"
	ErrBackupNotFound    ErrorCode = "BACKUP_NOT_FOUND"
	ErrStore             ErrorCode = "STORE"

	// Persisted state that no longer matches the filesystem
	ErrLinkCorrupt ErrorCode = "LINK_CORRUPT"

	// FileSystem errors
	ErrFileAccess ErrorCode = "FILE_ACCESS"
)

// RelocatorError represents a structured error with code and details
type RelocatorError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RelocatorError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RelocatorError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *RelocatorError) Is(target error) bool {
	var targetErr *RelocatorError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new RelocatorError with the given code and message
func New(code ErrorCode, message string) *RelocatorError {
	return &RelocatorError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RelocatorError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RelocatorError {
	return &RelocatorError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a RelocatorError
func Wrap(err error, code ErrorCode, message string) *RelocatorError {
	if err == nil {
		return nil
	}
	return &RelocatorError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RelocatorError {
	if err == nil {
		return nil
	}
	return &RelocatorError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *RelocatorError) WithDetail(key string, value interface{}) *RelocatorError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *RelocatorError) WithDetails(details map[string]interface{}) *RelocatorError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var relErr *RelocatorError
	if errors.As(err, &relErr) {
		return relErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a RelocatorError
func GetErrorCode(err error) ErrorCode {
	var relErr *RelocatorError
	if errors.As(err, &relErr) {
		return relErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a RelocatorError
func GetErrorDetails(err error) map[string]interface{} {
	var relErr *RelocatorError
	if errors.As(err, &relErr) {
		return relErr.Details
	}
	return nil
}

// IsPrecondition reports whether err is a failure detected before any
// filesystem or registry mutation took place.
func IsPrecondition(err error) bool {
	switch GetErrorCode(err) {
	case ErrInsufficientSpace, ErrSourceMissing, ErrSourceChanged, ErrTargetMissing,
		ErrTargetExists, ErrLinkExists, ErrLinkUnsupported:
		return true
	}
	return false
}
