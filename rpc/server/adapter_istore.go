package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/christophercampbell/skunkr/rpc/common"
)

// NewIStoreServerAdapter creates the adapter that maps messages onto store.IStore calls.
// scanBufferSize and scanTimeout configure the sink of every scan; non-positive values
// select scan.DefaultBufferSize and scan.DefaultSendTimeout.
func NewIStoreServerAdapter(scanBufferSize int, scanTimeout time.Duration) IRPCServerAdapter {
	return &iStoreServerAdapterImpl{
		scanBufferSize: scanBufferSize,
		scanTimeout:    scanTimeout,
	}
}

type iStoreServerAdapterImpl struct {
	scanBufferSize int
	scanTimeout    time.Duration
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, store store.IStore, send func(resp *common.Message) error) *common.Message {
	// Check for nil store
	if store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTKVSet:
		ok, err := store.Set(req.Table, req.Key, req.Value)
		return common.NewSetResponse(ok, err)
	case common.MsgTKVGet:
		val, loaded, err := store.Get(req.Table, req.Key)
		return common.NewGetResponse(val, loaded, err)
	case common.MsgTKVScan:
		return adapter.scan(req, store, send)
	case common.MsgTKVInfo:
		info, err := store.GetDBInfo()
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		meta, err := json.Marshal(info)
		return common.NewInfoResponse(meta, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// scan runs one scan through the pipeline: the request is handed to the store's producer,
// the relay republishes the sink onto an outbound queue and every item is sent as
// a scanItem message. The returned scanEnd message carries the terminal status.
func (adapter *iStoreServerAdapterImpl) scan(req *common.Message, store store.IStore, send func(resp *common.Message) error) *common.Message {
	if send == nil {
		return common.NewErrorResponse("handler: scan needs a streaming transport")
	}

	// an empty start key means a full scan
	from := req.Key
	if len(from) == 0 {
		from = nil
	}

	source := scan.NewHandoff[scan.Request]()
	source.Send(scan.Request{Table: req.Table, From: from})

	sink := scan.NewSink(adapter.scanBufferSize, adapter.scanTimeout)
	store.Scan(source, sink)

	out := scan.Relay(sink)
	for kv := range out.Recv() {
		if err := send(common.NewScanItemResponse(kv)); err != nil {
			// the producer notices through its send timeout
			Logger.Warningf("scan of table %q: stream closed by client: %v", req.Table, err)
			out.Abandon()
			break
		}
	}

	result := sink.Result()
	return common.NewScanEndResponse(result.Status, result.Err)
}
