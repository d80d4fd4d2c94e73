package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/ledger"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/registry"
	"github.com/arthur-debert/relocator/pkg/types"
)

// SchemaVersion is written on creation and checked on every open
const SchemaVersion = 1

var (
	metaBucket       = []byte("meta")
	operationsBucket = []byte("operations")
	backupsBucket    = []byte("registry_backups")
	reportsBucket    = []byte("registry_reports")

	keyVersion = []byte("version")
)

// Bolt implements ledger.Store and registry.BackupStore
type Bolt struct {
	db   *bolt.DB
	path string
}

var (
	_ ledger.Store         = (*Bolt)(nil)
	_ registry.BackupStore = (*Bolt)(nil)
)

type meta struct {
	Version int `json:"version"`
}

// Open opens or creates the database at path. Another process holding the
// file makes Open fail after a short wait instead of blocking.
func Open(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStore, "create directory for %s", path)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStore, "open %s", path)
	}

	setup := func(tx *bolt.Tx) error {
		m, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		for _, name := range [][]byte{operationsBucket, backupsBucket, reportsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		data := m.Get(keyVersion)
		if len(data) == 0 {
			return putJSON(m, keyVersion, meta{Version: SchemaVersion})
		}
		var cfg meta
		if err := json.Unmarshal(data, &cfg); err != nil {
			return err
		}
		if cfg.Version > SchemaVersion {
			return errors.Newf(errors.ErrStore, "ledger schema version %d is newer than %d", cfg.Version, SchemaVersion)
		}
		return nil
	}
	if err := db.Update(setup); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrStore, "initialize %s", path)
	}

	logger := logging.GetLogger("store")
	logger.Debug().Str("path", path).Msg("opened ledger database")
	return &Bolt{db: db, path: path}, nil
}

// Path is the database file
func (b *Bolt) Path() string {
	return b.path
}

// Close releases the database file
func (b *Bolt) Close() error {
	return b.db.Close()
}

func putJSON(bucket *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return bucket.Put(key, data)
}

func (b *Bolt) put(bucket []byte, key string, v interface{}) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(bucket), []byte(key), v)
	})
}

// get decodes the value under key into v and reports whether it existed
func (b *Bolt) get(bucket []byte, key string, v interface{}) (bool, error) {
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, v)
	})
	return found, err
}

// Put implements ledger.Store
func (b *Bolt) Put(ctx context.Context, rec *types.OperationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.put(operationsBucket, rec.ID, rec)
}

// Get implements ledger.Store
func (b *Bolt) Get(ctx context.Context, id string) (*types.OperationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec types.OperationRecord
	found, err := b.get(operationsBucket, id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// List implements ledger.Store
func (b *Bolt) List(ctx context.Context) ([]*types.OperationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*types.OperationRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(operationsBucket).ForEach(func(_, data []byte) error {
			var rec types.OperationRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			out = append(out, &rec)
			return nil
		})
	})
	return out, err
}

// Delete implements ledger.Store
func (b *Bolt) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(operationsBucket).Delete([]byte(id))
	})
}

// SaveBackup implements registry.BackupStore
func (b *Bolt) SaveBackup(_ context.Context, backup *registry.Backup) error {
	return b.put(backupsBucket, backup.ID, backup)
}

// LoadBackup implements registry.BackupStore
func (b *Bolt) LoadBackup(_ context.Context, id string) (*registry.Backup, error) {
	var backup registry.Backup
	found, err := b.get(backupsBucket, id, &backup)
	if err != nil || !found {
		return nil, err
	}
	return &backup, nil
}

// SaveReport implements registry.BackupStore
func (b *Bolt) SaveReport(_ context.Context, r *types.RegistryUpdateReport) error {
	return b.put(reportsBucket, r.OperationID, r)
}

// LoadReport implements registry.BackupStore
func (b *Bolt) LoadReport(_ context.Context, operationID string) (*types.RegistryUpdateReport, error) {
	var r types.RegistryUpdateReport
	found, err := b.get(reportsBucket, operationID, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}
