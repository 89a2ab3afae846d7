// Package http implements an HTTP-based transport layer for RPC communication
// in skunkr. It provides concrete implementations of the transport interfaces
// defined in the parent package, enabling communication between clients and
// servers over HTTP.
//
// The package focuses on:
//   - Client-side HTTP transport for sending RPC requests to servers
//   - Server-side HTTP transport for receiving and handling RPC requests
//   - Round-robin load balancing across multiple server endpoints
//   - Streamed responses over a single chunked response body
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport interface, managing
//     connections to server endpoints and implementing retry mechanisms. It uses
//     round-robin selection for load balancing across multiple server endpoints.
//
//   - httpServerTransport: Implements IRPCServerTransport interface, setting up
//     an HTTP server that hands every request posted to /rpc to the handler.
//
// Wire Format:
//
//	The request body is the serialized message. The response body uses the frame
//	format of the base package; every streamed response is flushed as soon as it is
//	written and the last frame carries base.FlagFinal.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter to ensure thread safety when
//	selecting server endpoints.
package http
