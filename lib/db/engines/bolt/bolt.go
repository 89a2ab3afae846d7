package bolt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/util"
	"github.com/lni/dragonboat/v4/logger"
	"go.etcd.io/bbolt"
)

var Logger = logger.GetLogger("bolt")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	fileName     = "skunkr.db"
	bucketPrefix = "t" // bbolt rejects empty bucket names, the default table "" maps to "t"
	openTimeout  = time.Second
	fileMode     = 0o644
)

const features = db.FeatureSet | db.FeatureGet | db.FeatureScan | db.FeaturePersistence

// --------------------------------------------------------------------------
// Core structure
// --------------------------------------------------------------------------

// boltImpl maps every table to one top level bbolt bucket.
// bbolt serializes write transactions itself and serves read transactions from
// a consistent mmap snapshot, so no additional locking is needed.
type boltImpl struct {
	db     *bbolt.DB
	path   string
	opts   db.Options
	closed atomic.Bool
}

// NewBoltDB opens (or creates) the database file below dir.
// Missing parent directories are created.
func NewBoltDB(dir string, opts *db.Options) (db.KVDB, error) {
	o := opts.OrDefault()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bolt: create data dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	bdb, err := bbolt.Open(path, fileMode, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	bdb.NoSync = o.NoSync
	bdb.NoFreelistSync = o.NoSync

	Logger.Infof("opened %s (max tables: %d, no-sync: %t)", path, o.MaxTables, o.NoSync)

	return &boltImpl{db: bdb, path: path, opts: o}, nil
}

func bucketName(table string) []byte {
	return []byte(bucketPrefix + table)
}

func tableName(bucket []byte) string {
	return string(bucket[len(bucketPrefix):])
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (b *boltImpl) Set(table string, key, value []byte) error {
	if b.closed.Load() {
		return db.ErrClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("bolt: set in table %q: %w", table, db.ErrEmptyKey)
	}

	created := false
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket, isNew, err := b.ensureTable(tx, table)
		if err != nil {
			return err
		}
		created = isNew
		return bucket.Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("bolt: set in table %q: %w", table, err)
	}
	if created {
		Logger.Infof("created table %q", table)
	}
	return nil
}

// ensureTable opens the bucket of a table and creates it if it does not exist yet.
func (b *boltImpl) ensureTable(tx *bbolt.Tx, table string) (*bbolt.Bucket, bool, error) {
	name := bucketName(table)
	if bucket := tx.Bucket(name); bucket != nil {
		return bucket, false, nil
	}

	count := 0
	_ = tx.ForEach(func(_ []byte, _ *bbolt.Bucket) error {
		count++
		return nil
	})
	if count >= b.opts.MaxTables {
		return nil, false, fmt.Errorf("create table %q: %w (max %d)", table, db.ErrTableLimit, b.opts.MaxTables)
	}

	bucket, err := tx.CreateBucket(name)
	if err != nil {
		return nil, false, fmt.Errorf("create table %q: %w", table, err)
	}
	return bucket, true, nil
}

func (b *boltImpl) Get(table string, key []byte) ([]byte, bool, error) {
	if b.closed.Load() {
		return nil, false, db.ErrClosed
	}

	var (
		value  []byte
		loaded bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName(table))
		if bucket == nil {
			Logger.Warningf("get: table %q does not exist", table)
			return nil
		}
		// the cursor distinguishes an empty value from a missing key
		k, v := bucket.Cursor().Seek(key)
		if k == nil || !bytes.Equal(k, key) {
			return nil
		}
		value = util.CopyBytes(v)
		loaded = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt: get from table %q: %w", table, err)
	}
	return value, loaded, nil
}

func (b *boltImpl) Scan(table string, from []byte, fn func(key, value []byte) error) error {
	if b.closed.Load() {
		return db.ErrClosed
	}

	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName(table))
		if bucket == nil {
			return fmt.Errorf("bolt: scan table %q: %w", table, db.ErrTableNotFound)
		}

		c := bucket.Cursor()
		var k, v []byte
		if len(from) == 0 {
			k, v = c.First()
		} else {
			k, v = c.Seek(from)
		}
		for ; k != nil; k, v = c.Next() {
			// Close waits for this transaction, stop at the next item
			if b.closed.Load() {
				return db.ErrClosed
			}
			if err := fn(util.CopyBytes(k), util.CopyBytes(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *boltImpl) HasTable(table string) (bool, error) {
	if b.closed.Load() {
		return false, db.ErrClosed
	}

	ok := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketName(table)) != nil
		return nil
	})
	return ok, err
}

func (b *boltImpl) Tables() ([]string, error) {
	if b.closed.Load() {
		return nil, db.ErrClosed
	}

	tables := make([]string, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			tables = append(tables, tableName(name))
			return nil
		})
	})
	return tables, err
}

func (b *boltImpl) SupportsFeature(feature db.Feature) bool {
	return features&feature == feature
}

func (b *boltImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType:            db.ImplBolt,
		SupportedFeatures: []db.Feature{db.FeatureSet, db.FeatureGet, db.FeatureScan, db.FeaturePersistence},
		Tables:            []string{},
		MaxTables:         b.opts.MaxTables,
	}
	if b.closed.Load() {
		return info
	}

	entries := make(map[string]int)
	_ = b.db.View(func(tx *bbolt.Tx) error {
		info.SizeBytes = tx.Size()
		return tx.ForEach(func(name []byte, bucket *bbolt.Bucket) error {
			table := tableName(name)
			info.Tables = append(info.Tables, table)
			entries[table] = bucket.Stats().KeyN
			return nil
		})
	})

	counts := make([]float64, 0, len(entries))
	for _, n := range entries {
		counts = append(counts, float64(n))
	}

	info.Metadata = &struct {
		Path         string         `json:"path"`
		NoSync       bool           `json:"no_sync"`
		TableEntries map[string]int `json:"table_entries"`
		TableStats   util.Stats     `json:"table_stats"`
	}{
		Path:         b.path,
		NoSync:       b.opts.NoSync,
		TableEntries: entries,
		TableStats:   util.NewStats(counts),
	}
	return info
}

func (b *boltImpl) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	// bbolt waits for open read transactions, a scan stops at its next item
	return b.db.Close()
}
