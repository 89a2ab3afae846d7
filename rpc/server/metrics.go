package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/christophercampbell/skunkr/rpc/common"
)

// serverMetrics collects the request and scan metrics of one server
type serverMetrics struct {
	set *metrics.Set
}

func newServerMetrics() *serverMetrics {
	return &serverMetrics{set: metrics.NewSet()}
}

// registerStore adds gauges that read the database info at scrape time
func (m *serverMetrics) registerStore(s store.IStore) {
	info := func() (int64, int) {
		i, err := s.GetDBInfo()
		if err != nil {
			return 0, 0
		}
		return i.SizeBytes, len(i.Tables)
	}
	m.set.NewGauge("skunkr_db_size_bytes", func() float64 {
		size, _ := info()
		return float64(size)
	})
	m.set.NewGauge("skunkr_db_tables", func() float64 {
		_, tables := info()
		return float64(tables)
	})
}

// request records one handled request
func (m *serverMetrics) request(msgType common.MessageType, start time.Time, failed bool) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`skunkr_requests_total{op=%q}`, msgType)).Inc()
	if failed {
		m.set.GetOrCreateCounter(fmt.Sprintf(`skunkr_request_errors_total{op=%q}`, msgType)).Inc()
	}
	m.set.GetOrCreateSummary(fmt.Sprintf(`skunkr_request_duration_seconds{op=%q}`, msgType)).UpdateDuration(start)
}

// scanFinished records the terminal status and the number of streamed items of a scan
func (m *serverMetrics) scanFinished(status scan.Status, items int) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`skunkr_scans_total{status=%q}`, status)).Inc()
	m.set.GetOrCreateCounter(`skunkr_scan_items_total`).Add(items)
}

// WritePrometheus writes the server metrics and the process metrics in Prometheus text format
func (m *serverMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

// handler serves the metrics on /metrics
func (m *serverMetrics) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		m.WritePrometheus(w)
	})
	return mux
}
