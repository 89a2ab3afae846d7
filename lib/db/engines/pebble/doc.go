// Package pebble implements the db.KVDB interface on top of github.com/cockroachdb/pebble,
// a RocksDB-inspired LSM key-value store.
//
// Tables are prefixes in pebble's single keyspace (see the keyspace package). A table and
// the first write into it are committed in one batch. A scan is a bounded iterator over
// the table's key range: LowerBound is the table prefix (or the start key), UpperBound is
// the first key after the table prefix.
//
// Durability follows db.Options.NoSync: commits use pebble.Sync by default and
// pebble.NoSync when requested.
package pebble
