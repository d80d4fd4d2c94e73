package types

import "time"

// RegistryValueType is the subset of registry value kinds that can hold paths
type RegistryValueType string

const (
	RegistryString       RegistryValueType = "REG_SZ"
	RegistryExpandString RegistryValueType = "REG_EXPAND_SZ"
	RegistryMultiString  RegistryValueType = "REG_MULTI_SZ"
)

// RegistryReference is one persisted value that contains a path of interest.
// Multi-string values carry their elements joined by NUL.
type RegistryReference struct {
	KeyPath   string            `json:"keyPath" yaml:"keyPath"`
	ValueName string            `json:"valueName" yaml:"valueName"`
	ValueData string            `json:"valueData" yaml:"valueData"`
	ValueType RegistryValueType `json:"valueType" yaml:"valueType"`
}

// RegistryUpdateEntry records the outcome of rewriting one reference
type RegistryUpdateEntry struct {
	Reference    RegistryReference `json:"reference" yaml:"reference"`
	NewValueData string            `json:"newValueData,omitempty" yaml:"newValueData,omitempty"`
	Replacements int               `json:"replacements" yaml:"replacements"`
	Success      bool              `json:"success" yaml:"success"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// RegistryUpdateResult is returned by a rewrite pass. UpdatedCount plus
// FailedCount always equals len(Entries).
type RegistryUpdateResult struct {
	OperationID  string                `json:"operationId" yaml:"operationId"`
	UpdatedCount int                   `json:"updatedCount" yaml:"updatedCount"`
	FailedCount  int                   `json:"failedCount" yaml:"failedCount"`
	Entries      []RegistryUpdateEntry `json:"entries" yaml:"entries"`
	Timestamp    time.Time             `json:"timestamp" yaml:"timestamp"`
}

// RegistryUpdateReport is the audit view of a rewrite pass
type RegistryUpdateReport struct {
	OperationID  string                `json:"operationId" yaml:"operationId"`
	OldPath      string                `json:"oldPath,omitempty" yaml:"oldPath,omitempty"`
	NewPath      string                `json:"newPath,omitempty" yaml:"newPath,omitempty"`
	UpdatedCount int                   `json:"updatedCount" yaml:"updatedCount"`
	FailedCount  int                   `json:"failedCount" yaml:"failedCount"`
	Entries      []RegistryUpdateEntry `json:"entries" yaml:"entries"`
	Timestamp    time.Time             `json:"timestamp" yaml:"timestamp"`
}

// Report converts a result into its audit form
func (r *RegistryUpdateResult) Report(oldPath, newPath string) *RegistryUpdateReport {
	entries := make([]RegistryUpdateEntry, len(r.Entries))
	copy(entries, r.Entries)
	return &RegistryUpdateReport{
		OperationID:  r.OperationID,
		OldPath:      oldPath,
		NewPath:      newPath,
		UpdatedCount: r.UpdatedCount,
		FailedCount:  r.FailedCount,
		Entries:      entries,
		Timestamp:    r.Timestamp,
	}
}
