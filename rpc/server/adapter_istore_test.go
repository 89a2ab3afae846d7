package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/engines/memory"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/christophercampbell/skunkr/lib/store/lstore"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts *db.Options) store.IStore {
	t.Helper()
	s, err := lstore.NewLocalStore(func() (db.KVDB, error) {
		return memory.NewMemoryDB("", opts)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// collect returns a send function that records all streamed messages
func collect(items *[]*common.Message) func(*common.Message) error {
	return func(msg *common.Message) error {
		*items = append(*items, msg)
		return nil
	}
}

func TestAdapterSetGet(t *testing.T) {
	adapter := NewIStoreServerAdapter(0, 0)
	s := newTestStore(t, nil)

	resp := adapter.Handle(common.NewSetRequest("t", []byte("k"), []byte("v")), s, nil)
	assert.Equal(t, common.MsgTKVSet, resp.MsgType)
	assert.True(t, resp.Ok)
	assert.Empty(t, resp.Err)

	resp = adapter.Handle(common.NewGetRequest("t", []byte("k")), s, nil)
	assert.True(t, resp.Ok)
	assert.Equal(t, []byte("v"), resp.Value)

	// a miss has no value and Ok=false
	resp = adapter.Handle(common.NewGetRequest("t", []byte("missing")), s, nil)
	assert.False(t, resp.Ok)
	assert.Nil(t, resp.Value)
	assert.Empty(t, resp.Err)

	// an empty value is present
	adapter.Handle(common.NewSetRequest("t", []byte("empty"), nil), s, nil)
	resp = adapter.Handle(common.NewGetRequest("t", []byte("empty")), s, nil)
	assert.True(t, resp.Ok)
	assert.NotNil(t, resp.Value)
	assert.Empty(t, resp.Value)
}

func TestAdapterSetTableLimit(t *testing.T) {
	adapter := NewIStoreServerAdapter(0, 0)
	s := newTestStore(t, &db.Options{MaxTables: 1})

	resp := adapter.Handle(common.NewSetRequest("a", []byte("k"), []byte("v")), s, nil)
	require.True(t, resp.Ok)

	resp = adapter.Handle(common.NewSetRequest("b", []byte("k"), []byte("v")), s, nil)
	assert.False(t, resp.Ok)
	assert.Contains(t, resp.Err, store.RetCTableLimit.String())
}

func TestAdapterScan(t *testing.T) {
	adapter := NewIStoreServerAdapter(0, 0)
	s := newTestStore(t, nil)
	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		adapter.Handle(common.NewSetRequest("t", []byte(kv[0]), []byte(kv[1])), s, nil)
	}

	var items []*common.Message
	resp := adapter.Handle(common.NewScanRequest("t", []byte("b")), s, collect(&items))

	assert.Equal(t, common.MsgTKVScanEnd, resp.MsgType)
	assert.Equal(t, scan.StatusCompleted, resp.Status)
	assert.True(t, resp.Ok)
	require.Len(t, items, 2)
	assert.Equal(t, common.MsgTKVScanItem, items[0].MsgType)
	assert.Equal(t, "b", string(items[0].Key))
	assert.Equal(t, "2", string(items[0].Value))
	assert.Equal(t, "c", string(items[1].Key))
	assert.Equal(t, "3", string(items[1].Value))

	// an empty start key scans the whole table
	items = nil
	resp = adapter.Handle(common.NewScanRequest("t", []byte{}), s, collect(&items))
	assert.Equal(t, scan.StatusCompleted, resp.Status)
	assert.Len(t, items, 3)
}

func TestAdapterScanMissingTable(t *testing.T) {
	adapter := NewIStoreServerAdapter(0, 0)
	s := newTestStore(t, nil)

	var items []*common.Message
	resp := adapter.Handle(common.NewScanRequest("missing", nil), s, collect(&items))
	assert.Empty(t, items)
	assert.Equal(t, scan.StatusTableMissing, resp.Status)
	assert.False(t, resp.Ok)
	assert.Empty(t, resp.Err)
}

func TestAdapterScanClientGone(t *testing.T) {
	adapter := NewIStoreServerAdapter(2, 50*time.Millisecond)
	s := newTestStore(t, nil)
	for i := 0; i < 50; i++ {
		adapter.Handle(common.NewSetRequest("t", []byte(fmt.Sprintf("k%02d", i)), []byte("v")), s, nil)
	}

	sent := 0
	resp := adapter.Handle(common.NewScanRequest("t", nil), s, func(*common.Message) error {
		sent++
		if sent == 3 {
			return errors.New("broken pipe")
		}
		return nil
	})

	// streaming stops at the first failed send. The producer either finished before the
	// relay stopped or gave up once the sink stayed full.
	assert.Equal(t, 3, sent)
	assert.Equal(t, common.MsgTKVScanEnd, resp.MsgType)
	assert.Contains(t, []scan.Status{scan.StatusCompleted, scan.StatusSendTimeout}, resp.Status)
	if resp.Status == scan.StatusSendTimeout {
		assert.NotEmpty(t, resp.Err)
	}
}

func TestAdapterScanWithoutStream(t *testing.T) {
	adapter := NewIStoreServerAdapter(0, 0)
	resp := adapter.Handle(common.NewScanRequest("t", nil), newTestStore(t, nil), nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)
}

func TestAdapterInfo(t *testing.T) {
	adapter := NewIStoreServerAdapter(0, 0)
	s := newTestStore(t, nil)
	adapter.Handle(common.NewSetRequest("t", []byte("k"), []byte("v")), s, nil)

	resp := adapter.Handle(common.NewInfoRequest(), s, nil)
	require.Empty(t, resp.Err)

	var info db.DatabaseInfo
	require.NoError(t, json.Unmarshal(resp.Meta, &info))
	assert.Equal(t, db.ImplMemory, info.DbType)
	assert.Equal(t, []string{"t"}, info.Tables)
}

func TestAdapterUnsupported(t *testing.T) {
	adapter := NewIStoreServerAdapter(0, 0)
	s := newTestStore(t, nil)

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTSuccess}, s, nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)

	resp = adapter.Handle(common.NewGetRequest("t", []byte("k")), nil, nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)
}
