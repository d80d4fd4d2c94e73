package registry

import (
	"context"

	"github.com/arthur-debert/relocator/pkg/types"
)

// Value is one string-typed registry value. MultiString data is joined
// by NUL.
type Value struct {
	Name string
	Data string
	Type types.RegistryValueType
}

// WalkFunc receives every key visited by Hive.Walk along with its string
// values
type WalkFunc func(keyPath string, values []Value) error

// Hive is the registry access primitive consumed by the Updater
type Hive interface {
	// Roots lists the well-known keys that are scanned for references
	Roots() []string

	// Walk visits root and its subkeys down to maxDepth levels. Missing
	// keys are skipped, not reported.
	Walk(ctx context.Context, root string, maxDepth int, fn WalkFunc) error

	// ReadValue reads a single value
	ReadValue(keyPath, name string) (Value, error)

	// WriteValue creates or replaces a value on an existing key
	WriteValue(keyPath string, v Value) error
}

// DefaultRoots are the keys where installers record install locations
var DefaultRoots = []string{
	`HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`,
	`HKLM\SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
	`HKCU\Software\Microsoft\Windows\CurrentVersion\Uninstall`,
	`HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`,
	`HKCU\Software\Microsoft\Windows\CurrentVersion\App Paths`,
	`HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\Run`,
	`HKCU\Software\Microsoft\Windows\CurrentVersion\Run`,
	`HKCU\Software\Classes\Applications`,
}
