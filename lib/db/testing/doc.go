// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - testing: A conformance suite for the KVDB contract (round-trip, absence, table isolation,
//     ordered and positioned scans, the table limit, concurrency, persistence and closing)
//   - benchmark: Performance tests for measuring throughput of get, set and scan
//
// Every test opens its database in a fresh t.TempDir() through the factory and closes it
// when the test ends.
//
// Example usage:
//
//	// Running the standard test suite
//	dbtesting.RunKVDBTests(t, "MyDatabase", mydb.NewMyDatabase)
//
//	// Running performance benchmarks
//	dbtesting.RunKVDBBenchmarks(b, "MyDatabase", mydb.NewMyDatabase)
package testing
