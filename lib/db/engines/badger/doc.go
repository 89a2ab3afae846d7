// Package badger implements the db.KVDB interface on top of github.com/dgraph-io/badger,
// an embeddable LSM key-value store with serializable snapshot isolation.
//
// Badger offers a single flat keyspace, so tables are laid out with the keyspace package:
// a registry maps table names to ids, and every data key is prefixed with its table id.
// A scan is a prefix iteration inside one read-only transaction.
//
// Badger's own log output goes through the dragonboat logger named "badger".
// Write durability follows db.Options.NoSync (badger's SyncWrites option).
package badger
