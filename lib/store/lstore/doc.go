// Package lstore provides the local implementation of the store.IStore interface.
// It binds the store abstraction to one db.KVDB engine (see lib/db/engines) opened at startup.
//
// Get and Set run synchronously in the caller's goroutine, each in its own engine transaction.
// Engine failures are logged and converted into *store.Error values; a failed write is
// reported as ok=false and never panics.
//
// Scan is the producer of the scan pipeline (see lib/scan). It starts a goroutine that takes
// the scan.Request from the handoff, iterates the table inside one read transaction and pushes
// every pair into the bounded sink. The goroutine finishes the sink with:
//   - scan.StatusCompleted when the cursor is exhausted
//   - scan.StatusTableMissing when the table does not exist (no items, warning log)
//   - scan.StatusSendTimeout when the consumer did not drain the sink in time (error log)
//   - scan.StatusEngineError when the engine failed (error log)
//
// Backed by the memory engine (lib/db/engines/memory) the store serves as the in-memory
// store for tests.
package lstore
