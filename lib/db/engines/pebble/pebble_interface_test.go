package pebble

import (
	"testing"

	dbtesting "github.com/christophercampbell/skunkr/lib/db/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "PebbleDB", NewPebbleDB)
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "PebbleDB", NewPebbleDB)
}

func TestTableIDsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	kv, err := NewPebbleDB(dir, nil)
	require.NoError(t, err)
	require.NoError(t, kv.Set("a", []byte("k"), []byte("1")))
	require.NoError(t, kv.Set("b", []byte("k"), []byte("2")))
	require.NoError(t, kv.Close())

	kv, err = NewPebbleDB(dir, nil)
	require.NoError(t, err)
	defer kv.Close()

	// a new table must not reuse the id of an existing one
	require.NoError(t, kv.Set("c", []byte("k"), []byte("3")))

	for table, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		v, loaded, err := kv.Get(table, []byte("k"))
		require.NoError(t, err)
		assert.True(t, loaded)
		assert.Equal(t, want, string(v))
	}
}
