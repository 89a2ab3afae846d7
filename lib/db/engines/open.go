// Package engines selects and opens a db.KVDB implementation by name.
package engines

import (
	"fmt"
	"path/filepath"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/engines/badger"
	"github.com/christophercampbell/skunkr/lib/db/engines/bolt"
	"github.com/christophercampbell/skunkr/lib/db/engines/memory"
	"github.com/christophercampbell/skunkr/lib/db/engines/pebble"
)

// Factory opens an engine in the given directory.
type Factory func(dir string, opts *db.Options) (db.KVDB, error)

var factories = map[db.Implementation]Factory{
	db.ImplBolt:   bolt.NewBoltDB,
	db.ImplPebble: pebble.NewPebbleDB,
	db.ImplBadger: badger.NewBadgerDB,
	db.ImplMemory: memory.NewMemoryDB,
}

// ParseImplementation validates an engine name.
func ParseImplementation(name string) (db.Implementation, error) {
	impl := db.Implementation(name)
	if _, ok := factories[impl]; !ok {
		return "", fmt.Errorf("unknown engine %q (supported: %v)", name, db.Implementations)
	}
	return impl, nil
}

// DataPath returns the directory used by an engine below the data directory.
func DataPath(dataDir string, impl db.Implementation) string {
	return filepath.Join(dataDir, string(impl))
}

// Open opens the engine impl in DataPath(dataDir, impl). Missing directories are created.
// The memory engine ignores dataDir.
func Open(impl db.Implementation, dataDir string, opts *db.Options) (db.KVDB, error) {
	factory, ok := factories[impl]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (supported: %v)", impl, db.Implementations)
	}
	if impl != db.ImplMemory && dataDir == "" {
		return nil, fmt.Errorf("engine %q needs a data directory", impl)
	}
	return factory(DataPath(dataDir, impl), opts)
}
