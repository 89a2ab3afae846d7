package badger

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/engines/internal/keyspace"
	"github.com/christophercampbell/skunkr/lib/db/util"
	"github.com/dgraph-io/badger"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("badger")

const features = db.FeatureSet | db.FeatureGet | db.FeatureScan | db.FeaturePersistence

// --------------------------------------------------------------------------
// Core structure
// --------------------------------------------------------------------------

// badgerImpl stores all tables in one badger keyspace (see package keyspace).
//
// Get and Scan run in read-only badger transactions (snapshot isolation).
// Set runs in a read-write transaction. Badger resolves write conflicts optimistically;
// writeMu serializes writers so that a Set never fails with badger.ErrConflict and
// table creation stays consistent with the table limit.
type badgerImpl struct {
	db       *badger.DB
	path     string
	opts     db.Options
	registry *keyspace.Registry
	closed   atomic.Bool

	writeMu sync.Mutex // guards nextID and tables

	// read-held by Get, Scan and GetInfo, Close takes it exclusively
	readers sync.RWMutex
	nextID  uint32
	tables  int
}

// NewBadgerDB opens (or creates) a badger database in dir.
func NewBadgerDB(dir string, opts *db.Options) (db.KVDB, error) {
	o := opts.OrDefault()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("badger: create data dir %s: %w", dir, err)
	}

	bopts := badger.DefaultOptions(dir).
		WithLogger(Logger).
		WithSyncWrites(!o.NoSync)

	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", dir, err)
	}

	b := &badgerImpl{
		db:       bdb,
		path:     dir,
		opts:     o,
		registry: keyspace.NewRegistry(),
		nextID:   1,
	}
	if err := b.loadRegistry(); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	Logger.Infof("opened %s (tables: %d, max tables: %d, no-sync: %t)", dir, b.tables, o.MaxTables, o.NoSync)
	return b, nil
}

// loadRegistry fills the table id cache from disk
func (b *badgerImpl) loadRegistry() error {
	prefix := keyspace.RegistryPrefix()
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := keyspace.TableName(item.Key())
			err := item.Value(func(val []byte) error {
				id, err := keyspace.DecodeID(val)
				if err != nil {
					return err
				}
				b.registry.Remember(name, id)
				b.tables++
				if id >= b.nextID {
					b.nextID = id + 1
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("badger: load tables: %w", err)
			}
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (b *badgerImpl) Set(table string, key, value []byte) error {
	if b.closed.Load() {
		return db.ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.closed.Load() {
		return db.ErrClosed
	}

	id, exists := b.registry.Lookup(table)
	if !exists {
		if b.tables >= b.opts.MaxTables {
			return fmt.Errorf("badger: create table %q: %w (max %d)", table, db.ErrTableLimit, b.opts.MaxTables)
		}
		id = b.nextID
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		if !exists {
			if err := txn.Set(keyspace.TableKey(table), keyspace.EncodeID(id)); err != nil {
				return err
			}
		}
		return txn.Set(keyspace.DataKey(id, key), value)
	})
	if err != nil {
		return fmt.Errorf("badger: set in table %q: %w", table, err)
	}

	if !exists {
		b.registry.Remember(table, id)
		b.nextID++
		b.tables++
		Logger.Infof("created table %q (id %d)", table, id)
	}
	return nil
}

func (b *badgerImpl) Get(table string, key []byte) ([]byte, bool, error) {
	if b.closed.Load() {
		return nil, false, db.ErrClosed
	}

	b.readers.RLock()
	defer b.readers.RUnlock()
	if b.closed.Load() {
		return nil, false, db.ErrClosed
	}

	id, ok := b.registry.Lookup(table)
	if !ok {
		Logger.Warningf("get: table %q does not exist", table)
		return nil, false, nil
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyspace.DataKey(id, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = util.CopyBytes(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("badger: get from table %q: %w", table, err)
	}
	return value, true, nil
}

func (b *badgerImpl) Scan(table string, from []byte, fn func(key, value []byte) error) error {
	if b.closed.Load() {
		return db.ErrClosed
	}

	b.readers.RLock()
	defer b.readers.RUnlock()
	if b.closed.Load() {
		return db.ErrClosed
	}

	id, ok := b.registry.Lookup(table)
	if !ok {
		return fmt.Errorf("badger: scan table %q: %w", table, db.ErrTableNotFound)
	}

	prefix := keyspace.DataPrefix(id)
	start := prefix
	if len(from) > 0 {
		start = keyspace.DataKey(id, from)
	}

	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			// Close waits for this scan, stop at the next item
			if b.closed.Load() {
				return db.ErrClosed
			}
			item := it.Item()
			key := keyspace.UserKey(item.Key())

			var value []byte
			if err := item.Value(func(val []byte) error {
				value = util.CopyBytes(val)
				return nil
			}); err != nil {
				return fmt.Errorf("badger: scan table %q: %w", table, err)
			}

			if err := fn(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *badgerImpl) HasTable(table string) (bool, error) {
	if b.closed.Load() {
		return false, db.ErrClosed
	}
	_, ok := b.registry.Lookup(table)
	return ok, nil
}

func (b *badgerImpl) Tables() ([]string, error) {
	if b.closed.Load() {
		return nil, db.ErrClosed
	}
	return b.registry.Names(), nil
}

func (b *badgerImpl) SupportsFeature(feature db.Feature) bool {
	return features&feature == feature
}

func (b *badgerImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType:            db.ImplBadger,
		SupportedFeatures: []db.Feature{db.FeatureSet, db.FeatureGet, db.FeatureScan, db.FeaturePersistence},
		Tables:            b.registry.Names(),
		MaxTables:         b.opts.MaxTables,
	}
	b.readers.RLock()
	defer b.readers.RUnlock()
	if b.closed.Load() {
		return info
	}

	lsm, vlog := b.db.Size()
	info.SizeBytes = lsm + vlog
	info.Metadata = &struct {
		Path      string `json:"path"`
		NoSync    bool   `json:"no_sync"`
		LSMBytes  int64  `json:"lsm_bytes"`
		VLogBytes int64  `json:"vlog_bytes"`
	}{
		Path:      b.path,
		NoSync:    b.opts.NoSync,
		LSMBytes:  lsm,
		VLogBytes: vlog,
	}
	return info
}

func (b *badgerImpl) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	// wait for in-flight writes and reads, a scan stops at its next item
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.readers.Lock()
	defer b.readers.Unlock()
	return b.db.Close()
}
