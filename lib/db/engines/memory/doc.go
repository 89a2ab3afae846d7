// Package memory implements the db.KVDB interface in process memory using copy-on-write
// btrees from github.com/google/btree. It backs the in-memory test store and the
// "memory" engine of the serve command. Nothing survives Close.
package memory
