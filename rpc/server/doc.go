// Package server implements the RPC server of skunkr.
// It contains the service layer that maps decoded requests onto store.IStore calls
// and the server that wires database, store, transport and serializer together.
//
// The package focuses on:
//   - Server-side RPC request handling for get, set, scan and info
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Streaming scan results with a status trailer
//   - Request and scan metrics in Prometheus text format
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating an adapter for key-value
//     store operations, translating RPC requests to store.IStore method calls.
//     A get miss is answered with Ok=false and no value. A scan request starts the
//     scan pipeline (lib/scan): the handoff carries the request to the store's producer,
//     the relay republishes the bounded sink onto an outbound queue and every item is
//     streamed as a scanItem message, followed by one scanEnd message with the status.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms. Serve opens the configured engine
//     (see lib/db/engines) below <data-dir>/<engine>.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Engine:        "bolt",
//	  DataDir:       "/var/lib/skunkr",
//	  MaxTables:     10,
//	  TimeoutSecond: 5,
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:7070"},
//	  LogLevel:      "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Metrics:
//
//	If MetricsEndpoint is set, the server exposes /metrics with per operation request
//	counters and latency summaries, scan status counters, the number of streamed scan
//	items and the database size.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	The Serve method is not thread-safe and should be called only once.
package server
