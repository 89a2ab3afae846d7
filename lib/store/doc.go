// Package store provides the engine independent key-value store abstraction of skunkr.
// It serves as an abstraction layer over the lower-level db.KVDB implementations, adding
// standardized error reporting and the asynchronous scan contract.
//
// The package focuses on:
//   - A unified interface (IStore) for get, set and scan across different backends
//   - Pluggable storage backend architecture through the DBFactory pattern
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting with
//     a key-value store. Set reports success as a flag, Get reports presence as a flag,
//     and Scan feeds a scan.Sink asynchronously from a one-shot scan.Handoff.
//     Implementations return *Error values that carry a RetCode.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     (RetCWriteFailed, RetCTableLimit, ...) and descriptive messages. The codes travel
//     to remote clients as part of the error message.
//
//   - DBFactory: A function type that abstracts the creation of the underlying db.KVDB,
//     so the store can be tested with the in-memory engine and deployed with a persistent one.
//
// Implementations:
//
//	- Local Store (lstore): Binds the interface to one db.KVDB instance.
//	  Available in the "github.com/christophercampbell/skunkr/lib/store/lstore" package.
//
//	- RPC Store (rpc/client): Implements the interface on top of the RPC transport,
//	  so remote clients use the same abstraction as the server.
//	  Available in the "github.com/christophercampbell/skunkr/rpc/client" package.
package store
