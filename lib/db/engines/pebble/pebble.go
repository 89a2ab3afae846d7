package pebble

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/engines/internal/keyspace"
	"github.com/christophercampbell/skunkr/lib/db/util"
	"github.com/cockroachdb/pebble/v2"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("pebble")

const (
	cacheSize    = 64 << 20
	maxOpenFiles = 1024
)

const features = db.FeatureSet | db.FeatureGet | db.FeatureScan | db.FeaturePersistence

// pebbleLogger forwards pebble's internal log output to the dragonboat logger
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{})  { Logger.Debugf(format, args...) }
func (pebbleLogger) Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }
func (pebbleLogger) Fatalf(format string, args ...interface{}) { Logger.Panicf(format, args...) }

// --------------------------------------------------------------------------
// Core structure
// --------------------------------------------------------------------------

// pebbleImpl stores all tables in one LSM keyspace (see package keyspace).
//
// Reads go straight to pebble, which serves every Get and iterator from a consistent
// point-in-time view. Writes are serialized by writeMu: creating a table and the first
// write into it are committed as one batch, so readers never observe a table without
// the write that created it.
type pebbleImpl struct {
	db           *pebble.DB
	path         string
	opts         db.Options
	writeOptions *pebble.WriteOptions
	registry     *keyspace.Registry
	closed       atomic.Bool

	writeMu sync.Mutex // guards nextID and tables

	// read-held by Get, Scan and GetInfo, Close takes it exclusively
	readers sync.RWMutex
	nextID  uint32
	tables  int
}

// NewPebbleDB opens (or creates) a pebble database in dir.
func NewPebbleDB(dir string, opts *db.Options) (db.KVDB, error) {
	o := opts.OrDefault()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pebble: create data dir %s: %w", dir, err)
	}

	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()

	pdb, err := pebble.Open(dir, &pebble.Options{
		Cache:        cache,
		MaxOpenFiles: maxOpenFiles,
		Logger:       pebbleLogger{},
	})
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", dir, err)
	}

	p := &pebbleImpl{
		db:           pdb,
		path:         dir,
		opts:         o,
		writeOptions: pebble.Sync,
		registry:     keyspace.NewRegistry(),
		nextID:       1,
	}
	if o.NoSync {
		p.writeOptions = pebble.NoSync
	}

	if err := p.loadRegistry(); err != nil {
		_ = pdb.Close()
		return nil, err
	}

	Logger.Infof("opened %s (tables: %d, max tables: %d, no-sync: %t)", dir, p.tables, o.MaxTables, o.NoSync)
	return p, nil
}

// loadRegistry fills the table id cache from disk
func (p *pebbleImpl) loadRegistry() error {
	prefix := keyspace.RegistryPrefix()
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyspace.UpperBound(prefix)})
	if err != nil {
		return fmt.Errorf("pebble: load tables: %w", err)
	}
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		id, err := keyspace.DecodeID(iter.Value())
		if err != nil {
			return fmt.Errorf("pebble: load tables: %w", err)
		}
		p.registry.Remember(keyspace.TableName(iter.Key()), id)
		p.tables++
		if id >= p.nextID {
			p.nextID = id + 1
		}
	}
	return iter.Error()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (p *pebbleImpl) Set(table string, key, value []byte) error {
	if p.closed.Load() {
		return db.ErrClosed
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed.Load() {
		return db.ErrClosed
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	id, exists := p.registry.Lookup(table)
	if !exists {
		if p.tables >= p.opts.MaxTables {
			return fmt.Errorf("pebble: create table %q: %w (max %d)", table, db.ErrTableLimit, p.opts.MaxTables)
		}
		id = p.nextID
		if err := batch.Set(keyspace.TableKey(table), keyspace.EncodeID(id), nil); err != nil {
			return fmt.Errorf("pebble: create table %q: %w", table, err)
		}
	}

	if err := batch.Set(keyspace.DataKey(id, key), value, nil); err != nil {
		return fmt.Errorf("pebble: set in table %q: %w", table, err)
	}
	if err := batch.Commit(p.writeOptions); err != nil {
		return fmt.Errorf("pebble: set in table %q: %w", table, err)
	}

	if !exists {
		p.registry.Remember(table, id)
		p.nextID++
		p.tables++
		Logger.Infof("created table %q (id %d)", table, id)
	}
	return nil
}

func (p *pebbleImpl) Get(table string, key []byte) ([]byte, bool, error) {
	if p.closed.Load() {
		return nil, false, db.ErrClosed
	}

	p.readers.RLock()
	defer p.readers.RUnlock()
	if p.closed.Load() {
		return nil, false, db.ErrClosed
	}

	id, ok := p.registry.Lookup(table)
	if !ok {
		Logger.Warningf("get: table %q does not exist", table)
		return nil, false, nil
	}

	data, closer, err := p.db.Get(keyspace.DataKey(id, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("pebble: get from table %q: %w", table, err)
	}
	value := util.CopyBytes(data)
	if err = closer.Close(); err != nil {
		return nil, false, fmt.Errorf("pebble: get from table %q: %w", table, err)
	}
	return value, true, nil
}

func (p *pebbleImpl) Scan(table string, from []byte, fn func(key, value []byte) error) error {
	if p.closed.Load() {
		return db.ErrClosed
	}

	p.readers.RLock()
	defer p.readers.RUnlock()
	if p.closed.Load() {
		return db.ErrClosed
	}

	id, ok := p.registry.Lookup(table)
	if !ok {
		return fmt.Errorf("pebble: scan table %q: %w", table, db.ErrTableNotFound)
	}

	prefix := keyspace.DataPrefix(id)
	lower := prefix
	if len(from) > 0 {
		lower = keyspace.DataKey(id, from)
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: keyspace.UpperBound(prefix)})
	if err != nil {
		return fmt.Errorf("pebble: scan table %q: %w", table, err)
	}
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		// Close waits for this scan, stop at the next item
		if p.closed.Load() {
			return db.ErrClosed
		}
		if err := fn(keyspace.UserKey(iter.Key()), util.CopyBytes(iter.Value())); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("pebble: scan table %q: %w", table, err)
	}
	return nil
}

func (p *pebbleImpl) HasTable(table string) (bool, error) {
	if p.closed.Load() {
		return false, db.ErrClosed
	}
	_, ok := p.registry.Lookup(table)
	return ok, nil
}

func (p *pebbleImpl) Tables() ([]string, error) {
	if p.closed.Load() {
		return nil, db.ErrClosed
	}
	return p.registry.Names(), nil
}

func (p *pebbleImpl) SupportsFeature(feature db.Feature) bool {
	return features&feature == feature
}

func (p *pebbleImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType:            db.ImplPebble,
		SupportedFeatures: []db.Feature{db.FeatureSet, db.FeatureGet, db.FeatureScan, db.FeaturePersistence},
		Tables:            p.registry.Names(),
		MaxTables:         p.opts.MaxTables,
	}
	p.readers.RLock()
	defer p.readers.RUnlock()
	if p.closed.Load() {
		return info
	}

	ids := make(map[string]uint32)
	p.registry.Range(func(name string, id uint32) bool {
		ids[name] = id
		return true
	})

	info.SizeBytes = int64(p.db.Metrics().DiskSpaceUsage())
	info.Metadata = &struct {
		Path     string            `json:"path"`
		NoSync   bool              `json:"no_sync"`
		TableIDs map[string]uint32 `json:"table_ids"`
	}{
		Path:     p.path,
		NoSync:   p.opts.NoSync,
		TableIDs: ids,
	}
	return info
}

func (p *pebbleImpl) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	// wait for in-flight writes and reads, a scan stops at its next item
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.readers.Lock()
	defer p.readers.Unlock()

	if err := p.db.Flush(); err != nil {
		Logger.Warningf("flush before close failed: %v", err)
	}
	return p.db.Close()
}
