package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/types"
)

// MemoryHive is an in-memory Hive. Key paths are compared case-insensitively
// like the Windows registry does.
type MemoryHive struct {
	mu     sync.RWMutex
	roots  []string
	keys   map[string]*memoryKey
	failOn map[string]error
}

type memoryKey struct {
	path   string
	values []Value
}

// NewMemoryHive creates an empty hive scanning the given roots
func NewMemoryHive(roots ...string) *MemoryHive {
	return &MemoryHive{
		roots:  append([]string(nil), roots...),
		keys:   make(map[string]*memoryKey),
		failOn: make(map[string]error),
	}
}

func keyID(path string) string {
	return strings.ToLower(strings.Trim(path, `\`))
}

func valueID(keyPath, name string) string {
	return keyID(keyPath) + "|" + strings.ToLower(name)
}

// Set creates the key if needed and stores v on it
func (h *MemoryHive) Set(keyPath string, v Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.set(keyPath, v)
}

func (h *MemoryHive) set(keyPath string, v Value) {
	k, ok := h.keys[keyID(keyPath)]
	if !ok {
		k = &memoryKey{path: strings.Trim(keyPath, `\`)}
		h.keys[keyID(keyPath)] = k
	}
	for i := range k.values {
		if strings.EqualFold(k.values[i].Name, v.Name) {
			k.values[i] = v
			return
		}
	}
	k.values = append(k.values, v)
}

// FailWrites makes every later write of the named value return err
func (h *MemoryHive) FailWrites(keyPath, name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failOn[valueID(keyPath, name)] = err
}

// Roots implements Hive
func (h *MemoryHive) Roots() []string {
	return append([]string(nil), h.roots...)
}

// Walk implements Hive. Keys are visited in sorted order.
func (h *MemoryHive) Walk(ctx context.Context, root string, maxDepth int, fn WalkFunc) error {
	h.mu.RLock()
	rootID := keyID(root)
	var ids []string
	for id := range h.keys {
		if id == rootID {
			ids = append(ids, id)
			continue
		}
		rest, ok := strings.CutPrefix(id, rootID+`\`)
		if !ok {
			continue
		}
		if strings.Count(rest, `\`)+1 <= maxDepth {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	type visit struct {
		path   string
		values []Value
	}
	visits := make([]visit, 0, len(ids))
	for _, id := range ids {
		k := h.keys[id]
		visits = append(visits, visit{path: k.path, values: append([]Value(nil), k.values...)})
	}
	h.mu.RUnlock()

	for _, v := range visits {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(v.path, v.values); err != nil {
			return err
		}
	}
	return nil
}

// ReadValue implements Hive
func (h *MemoryHive) ReadValue(keyPath, name string) (Value, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	k, ok := h.keys[keyID(keyPath)]
	if ok {
		for _, v := range k.values {
			if strings.EqualFold(v.Name, name) {
				return v, nil
			}
		}
	}
	return Value{}, errors.Newf(errors.ErrNotFound, `registry value %s\%s not found`, keyPath, name)
}

// WriteValue implements Hive
func (h *MemoryHive) WriteValue(keyPath string, v Value) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err, ok := h.failOn[valueID(keyPath, v.Name)]; ok {
		return err
	}
	if _, ok := h.keys[keyID(keyPath)]; !ok {
		return errors.Newf(errors.ErrNotFound, "registry key %s not found", keyPath)
	}
	h.set(keyPath, v)
	return nil
}

// MemoryBackupStore keeps backups and reports in process memory
type MemoryBackupStore struct {
	mu      sync.RWMutex
	backups map[string]*Backup
	reports map[string]*types.RegistryUpdateReport
}

// NewMemoryBackupStore creates an empty store
func NewMemoryBackupStore() *MemoryBackupStore {
	return &MemoryBackupStore{
		backups: make(map[string]*Backup),
		reports: make(map[string]*types.RegistryUpdateReport),
	}
}

// SaveBackup implements BackupStore
func (s *MemoryBackupStore) SaveBackup(_ context.Context, b *Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups[b.ID] = b.clone()
	return nil
}

// LoadBackup implements BackupStore
func (s *MemoryBackupStore) LoadBackup(_ context.Context, id string) (*Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.backups[id]
	if !ok {
		return nil, nil
	}
	return b.clone(), nil
}

// SaveReport implements BackupStore
func (s *MemoryBackupStore) SaveReport(_ context.Context, r *types.RegistryUpdateReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.OperationID] = cloneReport(r)
	return nil
}

// LoadReport implements BackupStore
func (s *MemoryBackupStore) LoadReport(_ context.Context, operationID string) (*types.RegistryUpdateReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[operationID]
	if !ok {
		return nil, nil
	}
	return cloneReport(r), nil
}
