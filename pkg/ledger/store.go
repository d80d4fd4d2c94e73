package ledger

import (
	"context"
	"sync"

	"github.com/arthur-debert/relocator/pkg/types"
)

// Store persists operation records. Get returns nil without an error for
// unknown ids.
type Store interface {
	Put(ctx context.Context, rec *types.OperationRecord) error
	Get(ctx context.Context, id string) (*types.OperationRecord, error)
	List(ctx context.Context) ([]*types.OperationRecord, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a Store held in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.OperationRecord
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*types.OperationRecord)}
}

func (s *MemoryStore) Put(_ context.Context, rec *types.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id].Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*types.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.OperationRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
