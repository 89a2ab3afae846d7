package store

import (
	"fmt"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/scan"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() (db.KVDB, error)

// IStore is the engine independent interface for interacting with a key–value store.
// Write and read operations return a *Error (nil on success) next to their result.
// The empty table name denotes the default table.
type IStore interface {
	// Set inserts or replaces the value of a key. The table is created if it does not exist.
	// ok is false if the write was not committed (e.g. the table limit is reached or the
	// engine failed); err then describes the cause.
	Set(table string, key, value []byte) (ok bool, err error)
	// Get returns the value for a key. The boolean return value indicates whether a value
	// for the key was found. A missing table is reported as loaded=false, not as an error.
	Get(table string, key []byte) (value []byte, loaded bool, err error)
	// Scan starts an asynchronous scan and returns immediately.
	// The scan request is taken from source exactly once, so source must already hold it.
	// The pairs are pushed into sink in ascending key order; the sink is always finished
	// with the terminal scan.Status.
	Scan(source *scan.Handoff[scan.Request], sink *scan.Sink)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close releases the underlying database.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCWriteFailed                         // 4: The write transaction could not be committed.
	RetCTableLimit                          // 5: The write would create more tables than allowed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCWriteFailed:
		return "WriteFailed"
	case RetCTableLimit:
		return "TableLimit"
	default:
		return "Unknown"
	}
}
