package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: [MsgType:1][flags:1] followed by the present fields in flag order.
// Byte fields are encoded as [len:4 BE][data]; Ok and Status take one byte.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasTable  byte = 1 << 0
	hasKey    byte = 1 << 1
	hasValue  byte = 1 << 2
	hasOk     byte = 1 << 3
	hasStatus byte = 1 << 4
	hasErr    byte = 1 << 5
	hasMeta   byte = 1 << 6
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags byte = 0
	pos := 2 // Start after MsgType and flags

	if msg.Table != "" {
		flags |= hasTable
		pos = putBytes(result, pos, []byte(msg.Table))
	}

	// nil and empty keys differ (empty keys are valid for some engines)
	if msg.Key != nil {
		flags |= hasKey
		pos = putBytes(result, pos, msg.Key)
	}

	if msg.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, msg.Value)
	}

	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	if msg.Status != scan.StatusUnknown {
		flags |= hasStatus
		result[pos] = byte(msg.Status)
		pos += 1
	}

	if msg.Err != "" {
		flags |= hasErr
		pos = putBytes(result, pos, []byte(msg.Err))
	}

	if msg.Meta != nil {
		flags |= hasMeta
		putBytes(result, pos, msg.Meta)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	pos := 2

	var (
		field []byte
		err   error
	)

	msg.Table = ""
	if flags&hasTable != 0 {
		if field, pos, err = readBytes(data, pos, "table"); err != nil {
			return err
		}
		msg.Table = string(field)
	}

	msg.Key = nil
	if flags&hasKey != 0 {
		if field, pos, err = readBytes(data, pos, "key"); err != nil {
			return err
		}
		msg.Key = append([]byte{}, field...)
	}

	msg.Value = nil
	if flags&hasValue != 0 {
		if field, pos, err = readBytes(data, pos, "value"); err != nil {
			return err
		}
		msg.Value = append([]byte{}, field...)
	}

	msg.Ok = false
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[pos] != 0
		pos += 1
	}

	msg.Status = scan.StatusUnknown
	if flags&hasStatus != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for scan status")
		}
		msg.Status = scan.Status(data[pos])
		pos += 1
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		if field, pos, err = readBytes(data, pos, "error"); err != nil {
			return err
		}
		msg.Err = string(field)
	}

	msg.Meta = nil
	if flags&hasMeta != 0 {
		if field, _, err = readBytes(data, pos, "meta"); err != nil {
			return err
		}
		msg.Meta = append([]byte{}, field...)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Table != "" {
		size += 4 + len(msg.Table)
	}
	if msg.Key != nil {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Ok {
		size += 1
	}
	if msg.Status != scan.StatusUnknown {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

// putBytes writes a length prefixed field and returns the new position
func putBytes(buf []byte, pos int, field []byte) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(field)))
	pos += 4
	copy(buf[pos:pos+len(field)], field)
	return pos + len(field)
}

// readBytes reads a length prefixed field. The returned slice aliases data.
func readBytes(data []byte, pos int, name string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s length", name)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if n < 0 || pos+n > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", name)
	}
	return data[pos : pos+n], pos + n, nil
}
