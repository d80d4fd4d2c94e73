package types

import (
	"fmt"
	"strings"
	"time"
)

// FileMoveOperation moves one top-level entry of the source directory
type FileMoveOperation struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	SizeBytes   int64  `json:"sizeBytes" yaml:"sizeBytes"`
	IsDir       bool   `json:"isDir" yaml:"isDir"`
}

// MigrationPlan is a snapshot of everything needed to relocate one install.
// It is a value: the engine copies it on execution and never writes back.
type MigrationPlan struct {
	ID                  string              `json:"id" yaml:"id"`
	Entry               SoftwareEntry       `json:"entry" yaml:"entry"`
	SourcePath          string              `json:"sourcePath" yaml:"sourcePath"`
	TargetPath          string              `json:"targetPath" yaml:"targetPath"`
	FileOperations      []FileMoveOperation `json:"fileOperations" yaml:"fileOperations"`
	TotalSizeBytes      int64               `json:"totalSizeBytes" yaml:"totalSizeBytes"`
	AvailableSpaceBytes int64               `json:"availableSpaceBytes" yaml:"availableSpaceBytes"`
	RecommendedLinkType LinkType            `json:"recommendedLinkType" yaml:"recommendedLinkType"`
	CreatedAt           time.Time           `json:"createdAt" yaml:"createdAt"`
}

// HasEnoughSpace reports whether the target volume can hold the source tree
func (p MigrationPlan) HasEnoughSpace() bool {
	return p.TotalSizeBytes <= p.AvailableSpaceBytes
}

// LinkPreference is the caller's choice of link type
type LinkPreference string

const (
	LinkPreferenceAuto     LinkPreference = "auto"
	LinkPreferenceSymlink  LinkPreference = "symlink"
	LinkPreferenceJunction LinkPreference = "junction"
)

// ParseLinkPreference parses configuration and flag values
func ParseLinkPreference(s string) (LinkPreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LinkPreferenceAuto, nil
	case "symlink", "symboliclink":
		return LinkPreferenceSymlink, nil
	case "junction":
		return LinkPreferenceJunction, nil
	default:
		return "", fmt.Errorf("unknown link preference: %q", s)
	}
}

// MigrationOptions tunes a single execution
type MigrationOptions struct {
	LinkPreference  LinkPreference `json:"linkPreference" yaml:"linkPreference"`
	UpdateRegistry  bool           `json:"updateRegistry" yaml:"updateRegistry"`
	VerifyIntegrity bool           `json:"verifyIntegrity" yaml:"verifyIntegrity"`
}

// MigrationResult is returned from every execution, successful or not
type MigrationResult struct {
	OperationID    string                `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Success        bool                  `json:"success" yaml:"success"`
	Error          string                `json:"error,omitempty" yaml:"error,omitempty"`
	BytesMoved     int64                 `json:"bytesMoved" yaml:"bytesMoved"`
	LinkType       LinkType              `json:"linkType,omitempty" yaml:"linkType,omitempty"`
	LinkPath       string                `json:"linkPath,omitempty" yaml:"linkPath,omitempty"`
	TargetPath     string                `json:"targetPath,omitempty" yaml:"targetPath,omitempty"`
	RegistryReport *RegistryUpdateReport `json:"registryReport,omitempty" yaml:"registryReport,omitempty"`
	RolledBack     bool                  `json:"rolledBack,omitempty" yaml:"rolledBack,omitempty"`
	RollbackError  string                `json:"rollbackError,omitempty" yaml:"rollbackError,omitempty"`
}

// RollbackResult summarizes the replay of an operation's undo log
type RollbackResult struct {
	OperationID         string   `json:"operationId" yaml:"operationId"`
	RollbackOperationID string   `json:"rollbackOperationId,omitempty" yaml:"rollbackOperationId,omitempty"`
	Success             bool     `json:"success" yaml:"success"`
	StepsReverted       int      `json:"stepsReverted" yaml:"stepsReverted"`
	StepsFailed         int      `json:"stepsFailed" yaml:"stepsFailed"`
	Errors              []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}
