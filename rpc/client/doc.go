// Package client implements the RPC client of skunkr.
// It provides an implementation of the store.IStore interface that communicates
// with a remote server via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote store
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.IStore
//     interface. This client forwards all operations to remote servers via the configured
//     transport layer. Scan streams the items of the server into the local scan.Sink and
//     finishes it with the status of the server's trailer; a broken stream finishes the
//     sink with scan.StatusEngineError.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:7070"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	// Create store client
//	store, _ := client.NewRPCStore(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//
//	// Use the store
//	store.Set("users", []byte("mykey"), []byte("myvalue"))
//	value, exists, _ := store.Get("users", []byte("mykey"))
//
//	// Scan the table
//	source := scan.NewHandoff[scan.Request]()
//	source.Send(scan.Request{Table: "users"})
//	sink := scan.NewSink(0, 0)
//	store.Scan(source, sink)
//	for kv := range sink.Items() {
//	  fmt.Printf("%s=%s\n", kv.Key, kv.Value)
//	}
//	result := sink.Result()
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
