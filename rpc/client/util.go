package client

import (
	"fmt"

	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/serializer"
	"github.com/christophercampbell/skunkr/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// This method also checks if the response is an error response and if the type of the response is the expected type.
// A response with an error message is returned together with the error.
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("RPC IStoreAdapter - Error: %s", err)
	}

	if err := checkResponse(resp, req.MsgType); err != nil {
		return resp, err
	}

	// Return the response
	return resp, nil
}

// checkResponse converts error responses and unexpected message types into errors
func checkResponse(resp *common.Message, expected common.MessageType) error {
	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return fmt.Errorf("RPC IStoreAdapter - Error: %s", resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != expected {
		return fmt.Errorf("RPC IStoreAdapter - Unexpected message type: %s, expected %s", resp.MsgType, expected)
	}

	return nil
}
