package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMetrics(t *testing.T) {
	m := newServerMetrics()
	s := newTestStore(t, nil)
	_, err := s.Set("t", []byte("k"), []byte("v"))
	require.NoError(t, err)
	m.registerStore(s)

	m.request(common.MsgTKVGet, time.Now(), false)
	m.request(common.MsgTKVSet, time.Now(), true)
	m.scanFinished(scan.StatusCompleted, 3)
	m.scanFinished(scan.StatusTableMissing, 0)

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `skunkr_requests_total{op="get"} 1`)
	assert.Contains(t, out, `skunkr_requests_total{op="set"} 1`)
	assert.Contains(t, out, `skunkr_request_errors_total{op="set"} 1`)
	assert.NotContains(t, out, `skunkr_request_errors_total{op="get"}`)
	assert.Contains(t, out, `skunkr_scans_total{status="completed"} 1`)
	assert.Contains(t, out, `skunkr_scans_total{status="table-missing"} 1`)
	assert.Contains(t, out, `skunkr_scan_items_total 3`)
	assert.Contains(t, out, `skunkr_db_tables 1`)
}

func TestServerMetricsHandler(t *testing.T) {
	m := newServerMetrics()
	m.request(common.MsgTKVScan, time.Now(), false)

	srv := httptest.NewServer(m.handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `skunkr_requests_total{op="scan"} 1`)

	resp, err = srv.Client().Post(srv.URL+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 405, resp.StatusCode)
}

func TestServerMetricsCountDeliveredScanItems(t *testing.T) {
	s := NewRPCServer(common.ServerConfig{ScanBufferSize: 2, ScanTimeout: 50 * time.Millisecond}, nil, serializer.NewBinarySerializer())
	s.store = newTestStore(t, nil)
	for i := 0; i < 20; i++ {
		_, err := s.store.Set("t", []byte(fmt.Sprintf("k%02d", i)), []byte("v"))
		require.NoError(t, err)
	}

	req, err := s.serializer.Serialize(*common.NewScanRequest("t", nil))
	require.NoError(t, err)

	// the connection breaks on the third item
	writes := 0
	resp := s.handle(req, func([]byte) error {
		writes++
		if writes == 3 {
			return errors.New("broken pipe")
		}
		return nil
	})

	var end common.Message
	require.NoError(t, s.serializer.Deserialize(resp, &end))
	assert.Equal(t, common.MsgTKVScanEnd, end.MsgType)
	assert.Equal(t, 3, writes)

	var buf bytes.Buffer
	s.metrics.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `skunkr_scan_items_total 2`)
}
