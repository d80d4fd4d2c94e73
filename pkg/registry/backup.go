package registry

import (
	"context"
	"time"

	"github.com/arthur-debert/relocator/pkg/types"
)

// Backup is a snapshot of reference values taken before they are rewritten
type Backup struct {
	ID         string                    `json:"id"`
	CreatedAt  time.Time                 `json:"createdAt"`
	References []types.RegistryReference `json:"references"`
}

// BackupStore persists backups and the per-operation mutation reports.
// Load methods return nil without an error for unknown ids.
type BackupStore interface {
	SaveBackup(ctx context.Context, b *Backup) error
	LoadBackup(ctx context.Context, id string) (*Backup, error)
	SaveReport(ctx context.Context, r *types.RegistryUpdateReport) error
	LoadReport(ctx context.Context, operationID string) (*types.RegistryUpdateReport, error)
}

func (b *Backup) clone() *Backup {
	c := *b
	c.References = append([]types.RegistryReference(nil), b.References...)
	return &c
}

func cloneReport(r *types.RegistryUpdateReport) *types.RegistryUpdateReport {
	c := *r
	c.Entries = append([]types.RegistryUpdateEntry(nil), r.Entries...)
	return &c
}
