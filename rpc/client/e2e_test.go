package client

import (
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/serializer"
	"github.com/christophercampbell/skunkr/rpc/server"
	"github.com/christophercampbell/skunkr/rpc/transport"
	"github.com/christophercampbell/skunkr/rpc/transport/http"
	"github.com/christophercampbell/skunkr/rpc/transport/tcp"
	"github.com/christophercampbell/skunkr/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSetup describes one transport/serializer combination
type testSetup struct {
	name       string
	endpoint   func(t *testing.T) string
	server     func() transport.IRPCServerTransport
	client     func() transport.IRPCClientTransport
	serializer func() serializer.IRPCSerializer
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

var setups = []testSetup{
	{
		name:       "unix-binary",
		endpoint:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "skunkr.sock") },
		server:     unix.NewUnixDefaultServerTransport,
		client:     unix.NewUnixClientTransport,
		serializer: serializer.NewBinarySerializer,
	},
	{
		name:       "tcp-json",
		endpoint:   freeAddr,
		server:     tcp.NewTCPDefaultServerTransport,
		client:     tcp.NewTCPClientTransport,
		serializer: serializer.NewJSONSerializer,
	},
	{
		name:       "http-gob",
		endpoint:   freeAddr,
		server:     http.NewHttpServerTransport,
		client:     http.NewHttpClientTransport,
		serializer: serializer.NewGOBSerializer,
	},
}

// startServer starts a server with the memory engine and returns a connected client store
func startServer(t *testing.T, setup testSetup, maxTables int) store.IStore {
	t.Helper()

	endpoint := setup.endpoint(t)
	s := server.NewRPCServer(common.ServerConfig{
		Engine:         string(db.ImplMemory),
		MaxTables:      maxTables,
		ScanBufferSize: 4,
		ScanTimeout:    time.Second,
		TimeoutSecond:  5,
		Transport:      common.ServerTransportConfig{Endpoint: endpoint, WorkersPerConn: 8},
		LogLevel:       "error",
	}, setup.server(), setup.serializer())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	config := common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{endpoint}, RetryCount: 2},
	}

	// wait until the server accepts connections
	var (
		client store.IStore
		err    error
	)
	require.Eventually(t, func() bool {
		client, err = NewRPCStore(config, setup.client(), setup.serializer())
		if err != nil {
			return false
		}
		if _, err = client.GetDBInfo(); err != nil {
			_ = client.Close()
			return false
		}
		return true
	}, 5*time.Second, 50*time.Millisecond, "server did not start: %v", err)

	t.Cleanup(func() {
		_ = client.Close()
		require.NoError(t, s.Close())
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})

	return client
}

func runScan(s store.IStore, table string, from []byte) ([]scan.KeyValue, scan.Result) {
	source := scan.NewHandoff[scan.Request]()
	source.Send(scan.Request{Table: table, From: from})
	sink := scan.NewSink(0, 0)
	s.Scan(source, sink)
	return sink.Collect()
}

func TestRemoteStore(t *testing.T) {
	for _, setup := range setups {
		t.Run(setup.name, func(t *testing.T) {
			s := startServer(t, setup, 3)

			t.Run("SetGet", func(t *testing.T) {
				ok, err := s.Set("t", []byte("k"), []byte("v"))
				require.NoError(t, err)
				assert.True(t, ok)

				value, loaded, err := s.Get("t", []byte("k"))
				require.NoError(t, err)
				assert.True(t, loaded)
				assert.Equal(t, []byte("v"), value)
			})

			t.Run("Absence", func(t *testing.T) {
				value, loaded, err := s.Get("t", []byte("missing"))
				require.NoError(t, err)
				assert.False(t, loaded)
				assert.Nil(t, value)

				_, loaded, err = s.Get("no-such-table", []byte("k"))
				require.NoError(t, err)
				assert.False(t, loaded)
			})

			t.Run("EmptyValue", func(t *testing.T) {
				ok, err := s.Set("t", []byte("empty"), []byte{})
				require.NoError(t, err)
				require.True(t, ok)

				value, loaded, err := s.Get("t", []byte("empty"))
				require.NoError(t, err)
				assert.True(t, loaded)
				assert.NotNil(t, value)
				assert.Empty(t, value)
			})

			t.Run("DefaultTable", func(t *testing.T) {
				ok, err := s.Set("", []byte("k"), []byte("default"))
				require.NoError(t, err)
				require.True(t, ok)

				value, loaded, err := s.Get("", []byte("k"))
				require.NoError(t, err)
				assert.True(t, loaded)
				assert.Equal(t, "default", string(value))
			})

			t.Run("ScanFrom", func(t *testing.T) {
				for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
					ok, err := s.Set("scan", []byte(kv[0]), []byte(kv[1]))
					require.NoError(t, err)
					require.True(t, ok)
				}

				items, res := runScan(s, "scan", []byte("b"))
				require.Equal(t, scan.StatusCompleted, res.Status, "err: %v", res.Err)
				assert.Equal(t, []scan.KeyValue{
					{Key: []byte("b"), Value: []byte("2")},
					{Key: []byte("c"), Value: []byte("3")},
				}, items)

				items, res = runScan(s, "scan", nil)
				assert.Equal(t, scan.StatusCompleted, res.Status)
				assert.Len(t, items, 3)
			})

			t.Run("ScanMissingTable", func(t *testing.T) {
				items, res := runScan(s, "no-such-table", nil)
				assert.Empty(t, items)
				assert.Equal(t, scan.StatusTableMissing, res.Status)
				assert.NoError(t, res.Err)
			})

			t.Run("TableLimit", func(t *testing.T) {
				// "", "t" and "scan" exist, the limit is 3
				ok, err := s.Set("one-too-many", []byte("k"), []byte("v"))
				assert.False(t, ok)
				require.Error(t, err)
				assert.Contains(t, err.Error(), store.RetCTableLimit.String())
			})

			t.Run("Info", func(t *testing.T) {
				info, err := s.GetDBInfo()
				require.NoError(t, err)
				assert.Equal(t, db.ImplMemory, info.DbType)
				assert.Equal(t, 3, info.MaxTables)
				assert.ElementsMatch(t, []string{"", "t", "scan"}, info.Tables)
			})
		})
	}
}

func TestRemoteLargeScan(t *testing.T) {
	s := startServer(t, setups[0], 0)

	const n = 500
	for i := 0; i < n; i++ {
		ok, err := s.Set("big", []byte(fmt.Sprintf("key-%04d", i)), []byte(fmt.Sprintf("value-%d", i)))
		require.NoError(t, err)
		require.True(t, ok)
	}

	items, res := runScan(s, "big", []byte("key-0100"))
	require.Equal(t, scan.StatusCompleted, res.Status, "err: %v", res.Err)
	require.Len(t, items, n-100)
	for i, kv := range items {
		assert.Equal(t, fmt.Sprintf("key-%04d", i+100), string(kv.Key))
	}
}

func TestConnectFails(t *testing.T) {
	_, err := NewRPCStore(common.ClientConfig{
		TimeoutSecond: 1,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{filepath.Join(t.TempDir(), "nobody.sock")},
			RetryCount: 1,
		},
	}, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
	assert.Error(t, err)
}
