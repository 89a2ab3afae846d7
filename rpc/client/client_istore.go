package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/serializer"
	"github.com/christophercampbell/skunkr/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes a client config, a transport and a serializer as parameters
// It returns a store.IStore and an error
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(table string, key, value []byte) (bool, error) {
	req := common.NewSetRequest(table, key, value)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Get(table string, key []byte) ([]byte, bool, error) {
	req := common.NewGetRequest(table, key)
	resp, err := invokeRPCRequest(req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}

	// some serializers drop empty values
	value := resp.Value
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (i *rpcStore) Scan(source *scan.Handoff[scan.Request], sink *scan.Sink) {
	go i.receive(source.Recv(), sink)
}

func (i *rpcStore) GetDBInfo() (db.DatabaseInfo, error) {
	resp, err := invokeRPCRequest(common.NewInfoRequest(), i.transport, i.serializer)
	if err != nil {
		return db.DatabaseInfo{}, err
	}

	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return db.DatabaseInfo{}, fmt.Errorf("RPC IStoreAdapter - invalid info response: %w", err)
	}
	return info, nil
}

func (i *rpcStore) Close() error {
	return i.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// receive is the client side producer of a scan: it streams the request to the server
// and pushes every received item into the sink. The trailer of the server becomes the
// result of the sink; transport failures are reported as scan.StatusEngineError.
func (i *rpcStore) receive(req scan.Request, sink *scan.Sink) {
	reqBytes, err := i.serializer.Serialize(*common.NewScanRequest(req.Table, req.From))
	if err != nil {
		sink.Finish(scan.StatusEngineError, err)
		return
	}

	stream, err := i.transport.Stream(reqBytes)
	if err != nil {
		sink.Finish(scan.StatusEngineError, err)
		return
	}
	defer stream.Close()

	for {
		data, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			sink.Finish(scan.StatusEngineError, fmt.Errorf("RPC IStoreAdapter - scan stream ended without trailer"))
			return
		}
		if err != nil {
			sink.Finish(scan.StatusEngineError, err)
			return
		}

		var msg common.Message
		if err := i.serializer.Deserialize(data, &msg); err != nil {
			sink.Finish(scan.StatusEngineError, fmt.Errorf("RPC IStoreAdapter - Error: %s", err))
			return
		}

		switch msg.MsgType {
		case common.MsgTKVScanItem:
			value := msg.Value
			if value == nil {
				value = []byte{}
			}
			if err := sink.Push(scan.KeyValue{Key: msg.Key, Value: value}); err != nil {
				// the local consumer stopped reading, closing the stream drops the remaining items
				Logger.Warningf("scan of table %q aborted: %v", req.Table, err)
				sink.Finish(scan.StatusSendTimeout, err)
				return
			}
		case common.MsgTKVScanEnd:
			var scanErr error
			if msg.Err != "" {
				scanErr = errors.New(msg.Err)
			}
			status := msg.Status
			if status == scan.StatusUnknown {
				status = scan.StatusEngineError
			}
			sink.Finish(status, scanErr)
			return
		default:
			sink.Finish(scan.StatusEngineError, checkResponse(&msg, common.MsgTKVScanItem))
			return
		}
	}
}
