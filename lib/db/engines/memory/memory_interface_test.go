package memory

import (
	"testing"

	"github.com/christophercampbell/skunkr/lib/db"
	dbtesting "github.com/christophercampbell/skunkr/lib/db/testing"
	"github.com/christophercampbell/skunkr/lib/db/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MemoryDB", NewMemoryDB)
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "MemoryDB", NewMemoryDB)
}

func TestScanSeesSnapshot(t *testing.T) {
	kv, err := NewMemoryDB("", nil)
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set("t", []byte("a"), []byte("1")))
	require.NoError(t, kv.Set("t", []byte("b"), []byte("2")))

	var keys []string
	err = kv.Scan("t", nil, func(key, _ []byte) error {
		// writes during the scan must not show up in it
		require.NoError(t, kv.Set("t", []byte("c"), []byte("3")))
		keys = append(keys, string(key))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestInfoSummaries(t *testing.T) {
	kv, err := NewMemoryDB("", nil)
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Set("t", []byte("a"), make([]byte, 10)))
	require.NoError(t, kv.Set("t", []byte("a"), make([]byte, 20)))

	info := kv.GetInfo()
	assert.Equal(t, db.ImplMemory, info.DbType)
	assert.Equal(t, int64(1+20+entryOverhead), info.SizeBytes)

	meta, ok := info.Metadata.(*struct {
		TableSummaries map[string]util.TableSummary `json:"table_summaries"`
		TableStats     util.Stats                   `json:"table_stats"`
		Info           string                       `json:"info"`
	})
	require.True(t, ok)
	assert.Equal(t, 1, meta.TableSummaries["t"].Entries)
	assert.False(t, kv.SupportsFeature(db.FeaturePersistence))
}
