package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"
)

const (
	// headerSize is the size of a frame header: requestID (8) + flags (1) + length (4)
	headerSize = 13

	// FlagFinal marks the last response frame of a request
	FlagFinal byte = 1 << 0
)

// ErrFrameTooLarge is returned by ReadFrame if a frame exceeds the configured maximum size
var ErrFrameTooLarge = errors.New("frame exceeds maximum message size")

// WriteFrame writes a frame to w with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 1 byte: flags
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func WriteFrame(w io.Writer, requestID uint64, flags byte, data []byte) error {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], requestID)
	header[8] = flags
	binary.BigEndian.PutUint32(header[9:13], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}

// ReadFrame reads a frame from r using the provided buffer.
// If the buffer is too small, it will allocate a new temporary buffer for the data.
// A maxSize of 0 disables the size check.
func ReadFrame(r io.Reader, buf []byte, maxSize int) (uint64, byte, []byte, error) {
	if len(buf) < headerSize {
		buf = make([]byte, headerSize)
	}

	if _, err := io.ReadFull(r, buf[:headerSize]); err != nil {
		return 0, 0, nil, err
	}

	requestID := binary.BigEndian.Uint64(buf[:8])
	flags := buf[8]
	contentLength := binary.BigEndian.Uint32(buf[9:13])

	if contentLength == 0 {
		return requestID, flags, []byte{}, nil
	}

	if maxSize > 0 && int(contentLength) > maxSize {
		return requestID, flags, nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, contentLength, maxSize)
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return 0, 0, nil, err
	}

	return requestID, flags, buf[:contentLength], nil
}

// backoff sleeps for the given attempt using exponential backoff
// with a small random jitter (+-10%), starting at 50ms
func backoff(attempt int) {
	backoffMs := 50 << min(attempt, 6)
	jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
	time.Sleep(time.Duration(jitter) * time.Millisecond)
}
