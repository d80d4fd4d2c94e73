package migration

import (
	"context"
	"time"

	"github.com/arthur-debert/relocator/pkg/ledger"
	"github.com/arthur-debert/relocator/pkg/types"
)

// Namer resolves target directory names
type Namer interface {
	GenerateName(entry *types.SoftwareEntry, tmpl *types.NamingTemplate) (string, error)
	ResolveConflict(basePath, desiredName string) (string, error)
}

// Linker manages the reparse point left at the install path
type Linker interface {
	IsSymbolicLinkSupported() bool
	Supports(kind types.LinkType, path string) bool
	CreateLink(ctx context.Context, kind types.LinkType, linkPath, targetPath string) error
	GetLinkInfo(path string) (*types.LinkInfo, error)
	RemoveLink(ctx context.Context, path string) (bool, error)
	CheckHealth(path string) types.InstallState
}

// RegistryUpdater rewrites persisted references to the install path
type RegistryUpdater interface {
	FindReferences(ctx context.Context, path string) ([]types.RegistryReference, error)
	CreateBackup(ctx context.Context, refs []types.RegistryReference) (string, error)
	RestoreBackup(ctx context.Context, backupID string) (int, error)
	UpdateReferences(ctx context.Context, refs []types.RegistryReference, oldPath, newPath string) (*types.RegistryUpdateResult, error)
}

// Ledger records operations and their actions
type Ledger interface {
	BeginOperation(ctx context.Context, opType types.OperationType, description string) (string, error)
	LogAction(ctx context.Context, operationID string, action *types.OperationAction) error
	CompleteOperation(ctx context.Context, operationID string, success bool) error
	GetOperation(ctx context.Context, operationID string) (*types.OperationRecord, error)
	GetHistory(ctx context.Context, q ledger.HistoryQuery) ([]*types.OperationRecord, error)
}

var _ Ledger = (*ledger.Logger)(nil)

// Deps are the collaborators of an Engine. Registry may be nil, in which
// case registry updates are skipped.
type Deps struct {
	FS       types.FS
	Volumes  types.VolumeInfo
	Naming   Namer
	Links    Linker
	Registry RegistryUpdater
	Ledger   Ledger
	Now      func() time.Time
}

// Engine is the MigrationEngine
type Engine struct {
	fs       types.FS
	volumes  types.VolumeInfo
	naming   Namer
	links    Linker
	registry RegistryUpdater
	ledger   Ledger
	now      func() time.Time
}

// New creates an engine from its collaborators
func New(deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		fs:       deps.FS,
		volumes:  deps.Volumes,
		naming:   deps.Naming,
		links:    deps.Links,
		registry: deps.Registry,
		ledger:   deps.Ledger,
		now:      now,
	}
}

// Inspect reports the migration state of an install path. Corruption is
// reported, never repaired.
func (e *Engine) Inspect(path string) types.InstallState {
	return e.links.CheckHealth(path)
}
