package common

import (
	"encoding/json"
	"fmt"

	"github.com/christophercampbell/skunkr/lib/scan"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Table string `json:"table,omitempty"` // Used for: Set, Get, Scan requests. Empty means the default table
	Key   []byte `json:"key,omitempty"`   // Used for: Set, Get, ScanItem; the start key of a Scan request
	Value []byte `json:"value,omitempty"` // Used for: Set (request), Get (response), ScanItem

	// Response only fields
	Ok     bool        `json:"ok,omitempty"`     // Used for: Set (success) and Get (presence) responses
	Status scan.Status `json:"status,omitempty"` // Used for: ScanEnd
	Err    string      `json:"err,omitempty"`    // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Info responses (json encoded db.DatabaseInfo)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request
func NewSetRequest(table string, key, value []byte) *Message {
	return &Message{
		MsgType: MsgTKVSet,
		Table:   table,
		Key:     key,
		Value:   value,
	}
}

// NewSetResponse creates a new Set response. ok is the commit flag of the store.
func NewSetResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVSet,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(table string, key []byte) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Table:   table,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response.
// A miss carries no value and Ok=false, so an empty value stays distinguishable.
func NewGetResponse(value []byte, loaded bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVGet,
		Ok:      loaded,
	}
	if loaded {
		if value == nil {
			value = []byte{}
		}
		msg.Value = value
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewScanRequest creates a new Scan request. A nil from scans the whole table.
func NewScanRequest(table string, from []byte) *Message {
	return &Message{
		MsgType: MsgTKVScan,
		Table:   table,
		Key:     from,
	}
}

// NewScanItemResponse creates one item of a scan stream
func NewScanItemResponse(kv scan.KeyValue) *Message {
	value := kv.Value
	if value == nil {
		value = []byte{}
	}
	return &Message{
		MsgType: MsgTKVScanItem,
		Key:     kv.Key,
		Value:   value,
	}
}

// NewScanEndResponse creates the trailer of a scan stream
func NewScanEndResponse(status scan.Status, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVScanEnd,
		Ok:      status == scan.StatusCompleted,
		Status:  status,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTKVInfo,
	}
}

// NewInfoResponse creates a new Info response with the encoded database info as meta
func NewInfoResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVInfo,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type
// --------------------------------------------------------------------------

// MessageType defines the type of message
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTUnknown:    "unknown",
	MsgTSuccess:    "success",
	MsgTError:      "error",
	MsgTKVSet:      "set",
	MsgTKVGet:      "get",
	MsgTKVScan:     "scan",
	MsgTKVScanItem: "scanItem",
	MsgTKVScanEnd:  "scanEnd",
	MsgTKVInfo:     "info",
}

// String returns the string representation of the message type
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVSet      // Set a key-value pair
	MsgTKVGet      // Get a value by key
	MsgTKVScan     // Start a scan, answered by a stream
	MsgTKVScanItem // One key-value pair of a scan stream
	MsgTKVScanEnd  // Trailer of a scan stream, carries the scan status
	MsgTKVInfo     // Database information
)
