package lstore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/engines/bolt"
	"github.com/christophercampbell/skunkr/lib/db/engines/memory"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T, opts *db.Options) store.IStore {
	t.Helper()
	s, err := NewLocalStore(func() (db.KVDB, error) {
		return memory.NewMemoryDB("", opts)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func startScan(s store.IStore, table string, from []byte, bufferSize int, timeout time.Duration) *scan.Sink {
	source := scan.NewHandoff[scan.Request]()
	source.Send(scan.Request{Table: table, From: from})
	sink := scan.NewSink(bufferSize, timeout)
	s.Scan(source, sink)
	return sink
}

func TestNewLocalStoreFactoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewLocalStore(func() (db.KVDB, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestRoundTrip(t *testing.T) {
	s := newMemoryStore(t, nil)

	ok, err := s.Set("t", []byte("k"), []byte("v"))
	require.NoError(t, err)
	assert.True(t, ok)

	value, loaded, err := s.Get("t", []byte("k"))
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, []byte("v"), value)

	// absence is not an error
	_, loaded, err = s.Get("t", []byte("missing"))
	require.NoError(t, err)
	assert.False(t, loaded)

	_, loaded, err = s.Get("missing", []byte("k"))
	require.NoError(t, err)
	assert.False(t, loaded)

	// empty values stay distinguishable from absent keys
	ok, err = s.Set("t", []byte("empty"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	value, loaded, err = s.Get("t", []byte("empty"))
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Empty(t, value)
}

func TestSetTableLimit(t *testing.T) {
	s := newMemoryStore(t, &db.Options{MaxTables: 2})

	for i := 0; i < 2; i++ {
		ok, err := s.Set(fmt.Sprintf("t%d", i), []byte("k"), []byte("v"))
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := s.Set("t2", []byte("k"), []byte("v"))
	assert.False(t, ok)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCTableLimit, storeErr.Code)
}

func TestSetWriteFailed(t *testing.T) {
	kv, err := bolt.NewBoltDB(t.TempDir(), nil)
	require.NoError(t, err)
	s, err := NewLocalStore(func() (db.KVDB, error) { return kv, nil })
	require.NoError(t, err)
	defer s.Close()

	// bbolt rejects empty keys
	ok, err := s.Set("t", nil, []byte("v"))
	assert.False(t, ok)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCWriteFailed, storeErr.Code)
}

func TestClosedStore(t *testing.T) {
	s, err := NewLocalStore(func() (db.KVDB, error) { return memory.NewMemoryDB("", nil) })
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get("t", []byte("k"))
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInternalError, storeErr.Code)

	items, res := startScan(s, "t", nil, 0, 0).Collect()
	assert.Empty(t, items)
	assert.Equal(t, scan.StatusEngineError, res.Status)
	assert.Error(t, res.Err)
}

func TestScanScenario(t *testing.T) {
	s := newMemoryStore(t, nil)
	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		ok, err := s.Set("t", []byte(kv[0]), []byte(kv[1]))
		require.NoError(t, err)
		require.True(t, ok)
	}

	items, res := startScan(s, "t", []byte("b"), 0, 0).Collect()
	require.Equal(t, scan.StatusCompleted, res.Status)
	require.NoError(t, res.Err)
	assert.Equal(t, []scan.KeyValue{
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}, items)
	assert.Equal(t, 2, res.Items)

	items, res = startScan(s, "t", nil, 0, 0).Collect()
	assert.Equal(t, scan.StatusCompleted, res.Status)
	assert.Len(t, items, 3)
}

func TestScanMissingTable(t *testing.T) {
	s := newMemoryStore(t, nil)

	items, res := startScan(s, "missing", nil, 0, 0).Collect()
	assert.Empty(t, items)
	assert.Equal(t, scan.StatusTableMissing, res.Status)
	assert.NoError(t, res.Err)
}

func TestScanBackpressure(t *testing.T) {
	s := newMemoryStore(t, nil)
	for i := 0; i < 20; i++ {
		_, err := s.Set("t", []byte(fmt.Sprintf("k%02d", i)), []byte("v"))
		require.NoError(t, err)
	}

	// nobody reads: the producer fills the buffer and then gives up
	sink := startScan(s, "t", nil, 2, 30*time.Millisecond)

	select {
	case <-sink.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not abort although nobody consumed it")
	}

	res := sink.Result()
	assert.Equal(t, scan.StatusSendTimeout, res.Status)
	assert.True(t, errors.Is(res.Err, scan.ErrSendTimeout))
	assert.Equal(t, 2, res.Items)

	// the two buffered items are still delivered, then the sink is closed
	items, _ := sink.Collect()
	assert.Len(t, items, 2)

	// the read transaction was released
	ok, err := s.Set("t", []byte("after"), []byte("v"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScanSlowConsumer(t *testing.T) {
	s := newMemoryStore(t, nil)
	for i := 0; i < 30; i++ {
		_, err := s.Set("t", []byte(fmt.Sprintf("k%02d", i)), []byte("v"))
		require.NoError(t, err)
	}

	// a slow but steady consumer stays within the timeout and gets everything in order
	sink := startScan(s, "t", nil, 3, time.Second)
	i := 0
	for kv := range sink.Items() {
		assert.Equal(t, fmt.Sprintf("k%02d", i), string(kv.Key))
		i++
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 30, i)
	assert.Equal(t, scan.StatusCompleted, sink.Result().Status)
}

func TestScanRequiresHandoff(t *testing.T) {
	s := &storeImpl{}
	// calling produce without a sent request is a programming error
	assert.Panics(t, func() {
		s.produce(scan.NewHandoff[scan.Request](), scan.NewSink(1, time.Second))
	})
}

func TestGetDBInfo(t *testing.T) {
	s := newMemoryStore(t, nil)
	_, err := s.Set("t", []byte("k"), []byte("v"))
	require.NoError(t, err)

	info, err := s.GetDBInfo()
	require.NoError(t, err)
	assert.Equal(t, db.ImplMemory, info.DbType)
	assert.Equal(t, []string{"t"}, info.Tables)
}
