// Package util provides statistics helpers for engines that satisfy the db.KVDB interface.
//
// The package contains:
//   - SizeHistogram: Tracks the value size distribution of a table with exponential buckets
//     (bytes to gigabytes) and estimates percentiles without keeping the samples
//   - Stats: Summary statistics over a set of values, e.g. the entry counts of all tables
//
// Engines use these helpers to fill the Metadata of db.DatabaseInfo without an expensive full scan.
package util
