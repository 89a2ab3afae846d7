// Package bolt implements the db.KVDB interface on top of go.etcd.io/bbolt, an embedded
// B+tree key-value store with fully serializable ACID transactions. It is the default
// engine of skunkr.
//
// Tables map to top level buckets named "t" + table name, so the default table ("")
// lives in the bucket "t". Every operation runs in its own transaction:
//
//   - Get and Scan use read-only transactions (db.View). Readers never block each other
//     or the writer; they see a consistent snapshot of the memory mapped file.
//   - Set uses a read-write transaction (db.Update) that creates the bucket when needed.
//     bbolt allows one writer at a time, so concurrent Sets are serialized by the engine.
//
// Scan holds its read transaction for the whole iteration. A long running scan keeps old
// pages alive and delays their reuse by writers, so consumers should not stall a scan.
// The scan pipeline enforces this with its send timeout.
//
// Empty keys are rejected by bbolt and are reported as db.ErrEmptyKey.
//
// Durability: with db.Options.NoSync the file is not fsynced after each commit
// (DB.NoSync and DB.NoFreelistSync). This is faster but a machine crash can lose the
// latest commits. The default syncs every commit.
package bolt
