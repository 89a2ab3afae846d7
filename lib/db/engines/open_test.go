package engines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImplementation(t *testing.T) {
	for _, impl := range db.Implementations {
		got, err := ParseImplementation(string(impl))
		require.NoError(t, err)
		assert.Equal(t, impl, got)
	}

	_, err := ParseImplementation("mdbx")
	assert.Error(t, err)
}

func TestOpenCreatesDataPath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "data")

	for _, impl := range []db.Implementation{db.ImplBolt, db.ImplPebble, db.ImplBadger} {
		t.Run(string(impl), func(t *testing.T) {
			kv, err := Open(impl, base, nil)
			require.NoError(t, err)
			defer kv.Close()

			st, err := os.Stat(DataPath(base, impl))
			require.NoError(t, err)
			assert.True(t, st.IsDir())
			assert.Equal(t, impl, kv.GetInfo().DbType)
		})
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("unknown", t.TempDir(), nil)
	assert.Error(t, err)

	_, err = Open(db.ImplBolt, "", nil)
	assert.Error(t, err)

	kv, err := Open(db.ImplMemory, "", nil)
	require.NoError(t, err)
	require.NoError(t, kv.Close())
}

func TestOpenFailsOnFile(t *testing.T) {
	// the data dir is a regular file, so the engine directory cannot be created
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Open(db.ImplBolt, file, nil)
	assert.Error(t, err)
}
