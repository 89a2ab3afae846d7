package testing

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/christophercampbell/skunkr/lib/db"
)

// RunKVDBBenchmarks runs the standard benchmarks for a KVDB implementation.
// All benchmarks use NoSync, they measure the engine and not the disk.
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	opts := &db.Options{NoSync: true}

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, open(b, factory, opts))
	})

	b.Run("SetExisting", func(b *testing.B) {
		benchmarkSetExisting(b, open(b, factory, opts))
	})

	b.Run("SetLargeValue", func(b *testing.B) {
		benchmarkSetLargeValue(b, open(b, factory, opts))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, open(b, factory, opts))
	})

	b.Run("Get(not)", func(b *testing.B) {
		benchmarkGetNot(b, open(b, factory, opts))
	})

	b.Run("Scan100", func(b *testing.B) {
		benchmarkScan(b, open(b, factory, opts), 100)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, open(b, factory, opts))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

const benchTable = "bench"

func populate(b *testing.B, database db.KVDB, numKeys int) {
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("test-key-%08d", i))
		value := []byte(fmt.Sprintf("test-value-%d", i))
		if err := database.Set(benchTable, key, value); err != nil {
			b.Fatalf("Failed to populate database: %v", err)
		}
	}
}

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {
	requireFeature(b, database, db.FeatureSet)

	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			key := []byte(fmt.Sprintf("test-key-%08d", i))
			value := []byte(fmt.Sprintf("test-value-%d", i))
			_ = database.Set(benchTable, key, value)
		}
	})
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	requireFeature(b, database, db.FeatureSet)

	numKeys := 1000
	populate(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%08d", counter%numKeys))
			value := []byte(fmt.Sprintf("test-value-%d", counter))
			_ = database.Set(benchTable, key, value)
			counter++
		}
	})
}

// Benchmark for Set operation with large values
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	requireFeature(b, database, db.FeatureSet)

	largeValue := make([]byte, 64*1024) // 64KB
	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%08d", counter.Add(1)))
			_ = database.Set(benchTable, key, largeValue)
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {
	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	numKeys := 10000
	populate(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("test-key-%08d", counter%numKeys))
			_, _, _ = database.Get(benchTable, key)
			counter++
		}
	})
}

// Parallel benchmarking for Get operation on missing keys
func benchmarkGetNot(b *testing.B, database db.KVDB) {
	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	populate(b, database, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := []byte(fmt.Sprintf("missing-key-%d", counter))
			_, _, _ = database.Get(benchTable, key)
			counter++
		}
	})
}

// Benchmark for short range scans
func benchmarkScan(b *testing.B, database db.KVDB, length int) {
	requireFeature(b, database, db.FeatureSet|db.FeatureScan)

	numKeys := 10000
	populate(b, database, numKeys)
	errStop := fmt.Errorf("stop")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			from := []byte(fmt.Sprintf("test-key-%08d", (counter*length)%numKeys))
			n := 0
			_ = database.Scan(benchTable, from, func(_, _ []byte) error {
				n++
				if n == length {
					return errStop
				}
				return nil
			})
			counter++
		}
	})
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureScan)

	numKeys := 10000
	populate(b, database, numKeys)

	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		localCounter := 0
		for pb.Next() {
			idx := int(counter.Add(1)-1) % numKeys
			key := []byte(fmt.Sprintf("test-key-%08d", idx))

			// 0-2: get, 3: set, 4: short scan
			switch localCounter % 5 {
			case 0, 1, 2:
				_, _, _ = database.Get(benchTable, key)
			case 3:
				_ = database.Set(benchTable, key, []byte(fmt.Sprintf("mixed-value-%d", localCounter)))
			case 4:
				n := 0
				_ = database.Scan(benchTable, key, func(_, _ []byte) error {
					n++
					if n == 10 {
						return fmt.Errorf("stop")
					}
					return nil
				})
			}
			localCounter++
		}
	})
}
