package badger

import (
	"testing"

	dbtesting "github.com/christophercampbell/skunkr/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BadgerDB", NewBadgerDB)
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "BadgerDB", NewBadgerDB)
}
