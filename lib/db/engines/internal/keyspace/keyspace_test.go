package keyspace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpperBound(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
	}{
		{"simple", []byte{0x01, 0x02}, []byte{0x01, 0x03}},
		{"trailing ff", []byte{0x01, 0x02, 0xFF}, []byte{0x01, 0x03}},
		{"all ff", []byte{0xFF, 0xFF}, nil},
		{"empty", []byte{}, nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UpperBound(tt.prefix))
		})
	}
}

func TestDataKeysStayInsideTableRange(t *testing.T) {
	keys := [][]byte{{}, {0x00}, {0xFF, 0xFF, 0xFF}, []byte("b")}

	for _, id := range []uint32{1, 2, 0xFF, 0xFFFF_FFFE} {
		prefix := DataPrefix(id)
		upper := UpperBound(prefix)
		require.NotNil(t, upper)

		for _, k := range keys {
			dk := DataKey(id, k)
			assert.True(t, bytes.HasPrefix(dk, prefix))
			assert.True(t, bytes.Compare(dk, upper) < 0, "key %x of table %d escapes upper bound %x", dk, id, upper)
			assert.Equal(t, k, UserKey(dk))
		}
	}
}

func TestDataKeyOrderMatchesUserKeyOrder(t *testing.T) {
	a := DataKey(7, []byte("a"))
	ab := DataKey(7, []byte("ab"))
	b := DataKey(7, []byte("b"))

	assert.True(t, bytes.Compare(a, ab) < 0)
	assert.True(t, bytes.Compare(ab, b) < 0)
}

func TestRegistryKeysSortBeforeData(t *testing.T) {
	reg := TableKey(string([]byte{0xFF, 0xFF}))
	data := DataKey(0, nil)
	assert.True(t, bytes.Compare(reg, data) < 0)
	assert.Equal(t, string([]byte{0xFF, 0xFF}), TableName(reg))
	assert.Equal(t, "", TableName(TableKey("")))
}

func TestIDRoundTrip(t *testing.T) {
	id, err := DecodeID(EncodeID(42))
	require.NoError(t, err)
	assert.Equal(t, uint32(42), id)

	_, err = DecodeID([]byte{1, 2})
	assert.Error(t, err)
}

func TestRegistryCache(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("t")
	assert.False(t, ok)

	r.Remember("t", 3)
	id, ok := r.Lookup("t")
	assert.True(t, ok)
	assert.Equal(t, uint32(3), id)
}
