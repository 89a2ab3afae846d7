package memory

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/util"
	"github.com/google/btree"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("memory")

const (
	degree          = 16
	samplesPerTable = 1000
	entryOverhead   = 48 // rough per item cost of the btree node slot and slice headers
)

const features = db.FeatureSet | db.FeatureGet | db.FeatureScan

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// --------------------------------------------------------------------------
// Core structure
// --------------------------------------------------------------------------

// memoryImpl keeps every table in its own copy-on-write btree.
//
// Readers hold the read lock for a point lookup only. A scan clones the table under the
// write lock (O(1), copy-on-write) and iterates the clone without holding any lock,
// which gives it the snapshot isolation of a read transaction.
type memoryImpl struct {
	mu        sync.RWMutex
	tables    map[string]*btree.BTreeG[item]
	opts      db.Options
	sizeBytes int64
	closed    bool
}

// NewMemoryDB creates an empty in-memory database. Nothing is persisted, the directory is ignored.
func NewMemoryDB(_ string, opts *db.Options) (db.KVDB, error) {
	return &memoryImpl{
		tables: make(map[string]*btree.BTreeG[item]),
		opts:   opts.OrDefault(),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (m *memoryImpl) Set(table string, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return db.ErrClosed
	}

	tree, ok := m.tables[table]
	if !ok {
		if len(m.tables) >= m.opts.MaxTables {
			return fmt.Errorf("memory: create table %q: %w (max %d)", table, db.ErrTableLimit, m.opts.MaxTables)
		}
		tree = btree.NewG[item](degree, less)
		m.tables[table] = tree
		Logger.Infof("created table %q", table)
	}

	newItem := item{key: util.CopyBytes(key), value: util.CopyBytes(value)}
	if old, replaced := tree.ReplaceOrInsert(newItem); replaced {
		m.sizeBytes -= int64(len(old.key) + len(old.value) + entryOverhead)
	}
	m.sizeBytes += int64(len(newItem.key) + len(newItem.value) + entryOverhead)
	return nil
}

func (m *memoryImpl) Get(table string, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, db.ErrClosed
	}

	tree, ok := m.tables[table]
	if !ok {
		Logger.Warningf("get: table %q does not exist", table)
		return nil, false, nil
	}

	found, ok := tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return util.CopyBytes(found.value), true, nil
}

func (m *memoryImpl) Scan(table string, from []byte, fn func(key, value []byte) error) error {
	snapshot, err := m.snapshot(table)
	if err != nil {
		return err
	}

	var fnErr error
	visit := func(it item) bool {
		// the snapshot outlives Close, stop at the next item
		if m.isClosed() {
			fnErr = db.ErrClosed
			return false
		}
		fnErr = fn(util.CopyBytes(it.key), util.CopyBytes(it.value))
		return fnErr == nil
	}

	if len(from) == 0 {
		snapshot.Ascend(visit)
	} else {
		snapshot.AscendGreaterOrEqual(item{key: from}, visit)
	}
	return fnErr
}

func (m *memoryImpl) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// snapshot returns a copy-on-write clone of a table
func (m *memoryImpl) snapshot(table string) (*btree.BTreeG[item], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, db.ErrClosed
	}
	tree, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("memory: scan table %q: %w", table, db.ErrTableNotFound)
	}
	return tree.Clone(), nil
}

func (m *memoryImpl) HasTable(table string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, db.ErrClosed
	}
	_, ok := m.tables[table]
	return ok, nil
}

func (m *memoryImpl) Tables() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, db.ErrClosed
	}
	return m.tableNames(), nil
}

func (m *memoryImpl) tableNames() []string {
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *memoryImpl) SupportsFeature(feature db.Feature) bool {
	return features&feature == feature
}

// GetInfo reports the exact size of all tables and a sampled value size distribution per table.
func (m *memoryImpl) GetInfo() db.DatabaseInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make(map[string]util.TableSummary, len(m.tables))
	counts := make([]float64, 0, len(m.tables))
	for name, tree := range m.tables {
		histogram := util.NewSizeHistogram()
		sampled := 0
		tree.Ascend(func(it item) bool {
			histogram.AddSample(len(it.value))
			sampled++
			return sampled < samplesPerTable
		})
		summary := histogram.Summary()
		summary.Entries = tree.Len()
		summaries[name] = summary
		counts = append(counts, float64(tree.Len()))
	}

	return db.DatabaseInfo{
		SizeBytes:         m.sizeBytes,
		DbType:            db.ImplMemory,
		SupportedFeatures: []db.Feature{db.FeatureSet, db.FeatureGet, db.FeatureScan},
		Tables:            m.tableNames(),
		MaxTables:         m.opts.MaxTables,
		Metadata: &struct {
			TableSummaries map[string]util.TableSummary `json:"table_summaries"`
			TableStats     util.Stats                   `json:"table_stats"`
			Info           string                       `json:"info"`
		}{
			TableSummaries: summaries,
			TableStats:     util.NewStats(counts),
			Info:           "Value sizes are estimated from a sample of each table.",
		},
	}
}

func (m *memoryImpl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.tables = make(map[string]*btree.BTreeG[item])
	m.sizeBytes = 0
	return nil
}
