// Package rpc provides the remote procedure call layer of skunkr. It connects
// clients to a server holding the tables and carries the set, get, scan and info
// operations across the network.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP). Every transport can stream several responses for
//     one request, which is how scans reach the client.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: An RPC client implementing store.IStore, so applications use a remote
//     server the same way as a local store.
//
//   - server: The RPC server that opens the database, dispatches requests to the
//     store adapter and exports metrics.
package rpc
