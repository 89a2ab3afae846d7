package server

import (
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/christophercampbell/skunkr/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message and a store as parameters.
	// Streaming requests (scan) call send once per intermediate response before the
	// final response is returned. If send fails, the adapter stops streaming.
	// If an error occurs, it should be set in the response
	Handle(req *common.Message, store store.IStore, send func(resp *common.Message) error) (resp *common.Message)
}
