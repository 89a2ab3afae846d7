// Package db provides a standardized interface for the embedded storage engines of skunkr.
// It defines the KVDB interface that allows for consistent interaction with different
// engines while abstracting their transaction models.
//
// The package focuses on:
//   - A unified interface for table-aware get, set and ordered scan operations
//   - Feature discovery through capability flags
//   - Typed, fallible errors instead of panics
//   - Comprehensive metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all engines must satisfy.
//     Each call opens its own transaction: Get and Scan use read-only transactions,
//     Set uses a read-write transaction that creates the table if needed.
//
//   - Tables: Named namespaces inside one database environment. The empty name denotes
//     the default table. The number of tables is bounded by Options.MaxTables
//     (DefaultMaxTables = 10). Writes that would create one table too many fail with
//     ErrTableLimit; reads of a missing table report "not found".
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method (e.g. FeaturePersistence is not
//     supported by the memory engine).
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for the engines ("bolt", "pebble", "badger", "memory").
//
//   - Database Information: The DatabaseInfo structure reports engine type, size,
//     tables and table limit.
//
// Note on Durability:
//
//	Options.NoSync trades durability for write throughput. With NoSync=false (default)
//	every commit is synced to disk before Set returns. With NoSync=true a machine crash
//	can lose the most recent commits, but the database never becomes corrupt.
//
// Related Packages:
//
// The engines package (github.com/christophercampbell/skunkr/lib/db/engines) opens an
// engine by name below a data directory. The engines themselves live in
// engines/bolt (go.etcd.io/bbolt), engines/pebble (cockroachdb/pebble),
// engines/badger (dgraph-io/badger) and engines/memory (google/btree).
//
// The testing package (github.com/christophercampbell/skunkr/lib/db/testing) provides
// standardized tests and benchmarks for implementations of the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
