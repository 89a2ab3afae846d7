package transport

import (
	"github.com/christophercampbell/skunkr/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received.
// Unary handlers just return the response. Streaming handlers call stream once per
// intermediate response and return the final response (the trailer) when done.
// An error returned by stream means the response can no longer be delivered
// (e.g. the client disconnected); the handler should stop producing.
type ServerHandleFunc func(req []byte, stream func(resp []byte) error) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and listens for incoming requests.
	// It blocks until the transport is closed (returns nil) or fails.
	Listen(config common.ServerConfig) error
	// Close stops listening and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IResponseStream is the client side of a streamed response
type IResponseStream interface {
	// Recv returns the next response. The final response is returned like every other one,
	// afterwards Recv returns io.EOF.
	Recv() (resp []byte, err error)
	// Close releases the stream. Responses that arrive later are dropped.
	Close() error
}

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the (final) response
	Send(req []byte) (resp []byte, err error)
	// Stream sends a request to the server and returns the stream of its responses
	Stream(req []byte) (stream IResponseStream, err error)
	// Close closes the transport connection
	Close() error
}
