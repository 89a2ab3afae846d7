package db

import (
	"errors"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplBolt   Implementation = "bolt"
	ImplPebble Implementation = "pebble"
	ImplBadger Implementation = "badger"
	ImplMemory Implementation = "memory"
)

// Implementations lists all engines known to the engines package in the order they are documented.
var Implementations = []Implementation{ImplBolt, ImplPebble, ImplBadger, ImplMemory}

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet         Feature = 1 << iota // Support for Set operations
	FeatureGet                             // Support for Get operations
	FeatureScan                            // Support for ordered Scan operations
	FeaturePersistence                     // Data survives Close and reopen of the same path
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureScan:
		return "Scan"
	case FeaturePersistence:
		return "Persistence"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int64          `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Tables            []string       `json:"tables"`
	MaxTables         int            `json:"max_tables"`
	Metadata          interface{}    `json:"metadata,omitempty"`
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// DefaultMaxTables is the number of tables an environment may hold unless configured otherwise.
const DefaultMaxTables = 10

// Options configures an engine when it is opened.
// A nil *Options is valid and yields the defaults.
type Options struct {
	// MaxTables bounds the number of tables in one environment. Values <= 0 select DefaultMaxTables.
	MaxTables int
	// NoSync skips the fsync on commit. Committed writes may be lost on a machine crash,
	// but the file stays consistent. The default (false) syncs every commit.
	NoSync bool
}

// OrDefault returns a copy of the options with all zero values replaced by defaults.
func (o *Options) OrDefault() Options {
	var res Options
	if o != nil {
		res = *o
	}
	if res.MaxTables <= 0 {
		res.MaxTables = DefaultMaxTables
	}
	return res
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrTableNotFound is returned by read paths that require an existing table.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableLimit is returned when a write would create a table beyond Options.MaxTables.
	ErrTableLimit = errors.New("table limit reached")
	// ErrClosed is returned by every operation on a closed database.
	ErrClosed = errors.New("database closed")
	// ErrEmptyKey is returned by engines that cannot store zero-length keys.
	ErrEmptyKey = errors.New("empty key")
)

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines the contract of an embedded, ordered, transactional key-value engine
// with named tables. The empty table name denotes the default table.
//
// Every operation runs in its own transaction. Read operations never see partial writes
// and never block each other; write operations are serialized by the engine.
// All methods are fallible and return typed errors (see ErrTableNotFound, ErrTableLimit, ErrClosed).
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or replaces the value of key in table within one read-write transaction.
	// If the table does not exist it is created first, unless that would exceed the
	// table limit, in which case an error wrapping ErrTableLimit is returned and nothing is written.
	Set(table string, key, value []byte) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	// A missing table is reported as loaded=false, not as an error.
	// The returned slice is owned by the caller.
	Get(table string, key []byte) (value []byte, loaded bool, err error)

	// Scan calls fn for every entry of table with key >= from (all entries if from is empty)
	// in ascending key order. The iteration runs in a single read-only transaction that is
	// released when Scan returns. If fn returns an error the iteration stops and Scan returns
	// that error. A missing table yields an error wrapping ErrTableNotFound.
	// The slices passed to fn are owned by fn.
	Scan(table string, from []byte, fn func(key, value []byte) error) (err error)

	// HasTable reports whether the table exists.
	HasTable(table string) (ok bool, err error)

	// Tables lists all existing tables in ascending name order.
	Tables() (tables []string, err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database. Calling Close more than once is allowed.
	Close() (err error)
}
