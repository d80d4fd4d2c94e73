package types

import (
	"fmt"
	"strings"
)

// LinkType identifies the kind of directory reparse point
type LinkType string

const (
	LinkTypeJunction     LinkType = "Junction"
	LinkTypeSymbolicLink LinkType = "SymbolicLink"
)

// ParseLinkType accepts the canonical names as well as the short forms used
// on the command line and in configuration.
func ParseLinkType(s string) (LinkType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "junction":
		return LinkTypeJunction, nil
	case "symboliclink", "symlink":
		return LinkTypeSymbolicLink, nil
	default:
		return "", fmt.Errorf("unknown link type: %q", s)
	}
}

// LinkInfo describes an existing reparse point. It is only produced for
// paths that actually are links.
type LinkInfo struct {
	LinkPath   string   `json:"linkPath" yaml:"linkPath"`
	TargetPath string   `json:"targetPath" yaml:"targetPath"`
	LinkType   LinkType `json:"linkType" yaml:"linkType"`
}

// MigrationState is where an install directory sits in its lifecycle
type MigrationState string

const (
	// StateOriginal: a plain directory at the install path
	StateOriginal MigrationState = "original"
	// StateMigrated: a link at the install path whose target directory exists
	StateMigrated MigrationState = "migrated"
	// StateCorrupt: a link whose target is gone, or a target that is not a directory
	StateCorrupt MigrationState = "corrupt"
	// StateMissing: nothing at the install path
	StateMissing MigrationState = "missing"
)

// InstallState is the health report for one install path
type InstallState struct {
	Path    string         `json:"path" yaml:"path"`
	State   MigrationState `json:"state" yaml:"state"`
	Link    *LinkInfo      `json:"link,omitempty" yaml:"link,omitempty"`
	Problem string         `json:"problem,omitempty" yaml:"problem,omitempty"`
}

// IsHealthy reports whether the path is in a consistent terminal state
func (s InstallState) IsHealthy() bool {
	return s.State == StateOriginal || s.State == StateMigrated
}
