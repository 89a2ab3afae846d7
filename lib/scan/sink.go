package scan

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Request describes one scan: the table and the optional start key.
// A nil or empty From scans the whole table.
type Request struct {
	Table string
	From  []byte
}

// KeyValue is one item of a scan.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Status is the terminal state of a scan.
type Status uint8

const (
	StatusUnknown      Status = iota // Scan has not finished
	StatusCompleted                  // The cursor was exhausted
	StatusTableMissing               // The table does not exist, no items were produced
	StatusSendTimeout                // The consumer did not drain the sink in time
	StatusEngineError                // The engine failed while iterating
)

var statusNames = map[Status]string{
	StatusUnknown:      "unknown",
	StatusCompleted:    "completed",
	StatusTableMissing: "table-missing",
	StatusSendTimeout:  "send-timeout",
	StatusEngineError:  "engine-error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus converts the name of a status back into a Status.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown scan status %q", name)
}

// Aborted reports whether the scan ended before the cursor was exhausted.
func (s Status) Aborted() bool {
	return s != StatusCompleted && s != StatusUnknown
}

// Result is the outcome of a finished scan.
type Result struct {
	Status Status
	Err    error // set for StatusSendTimeout and StatusEngineError
	Items  int   // number of items pushed into the sink
}

// --------------------------------------------------------------------------
// Sink
// --------------------------------------------------------------------------

const (
	// DefaultBufferSize is the number of items that may be in flight between producer and relay.
	DefaultBufferSize = 10
	// DefaultSendTimeout bounds how long the producer waits for room in the sink.
	DefaultSendTimeout = 3 * time.Second
)

// ErrSendTimeout is returned by Sink.Push if the sink stayed full for the whole send timeout.
var ErrSendTimeout = errors.New("scan: send timeout")

// Sink is the bounded channel between the scan producer and the relay.
//
// A full sink blocks Push for at most the send timeout. This is the backpressure mechanism:
// the producer never buffers more than the buffer size, and a consumer that stops reading
// aborts the scan instead of hanging it.
//
// Exactly one producer goroutine may call Push and Finish.
type Sink struct {
	items       chan KeyValue
	done        chan struct{}
	sendTimeout time.Duration
	finished    atomic.Bool
	pushed      int
	result      Result
}

// NewSink creates a sink. Non-positive values select DefaultBufferSize and DefaultSendTimeout.
func NewSink(bufferSize int, sendTimeout time.Duration) *Sink {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Sink{
		items:       make(chan KeyValue, bufferSize),
		done:        make(chan struct{}),
		sendTimeout: sendTimeout,
	}
}

// Push sends one item, waiting at most the send timeout for buffer space.
func (s *Sink) Push(kv KeyValue) error {
	// fast path without allocating a timer
	select {
	case s.items <- kv:
		s.pushed++
		return nil
	default:
	}

	timer := time.NewTimer(s.sendTimeout)
	defer timer.Stop()

	select {
	case s.items <- kv:
		s.pushed++
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %s (%d items sent)", ErrSendTimeout, s.sendTimeout, s.pushed)
	}
}

// Finish records the terminal status and closes the sink. It must be called exactly once.
func (s *Sink) Finish(status Status, err error) {
	if !s.finished.CompareAndSwap(false, true) {
		panic("scan: sink finished twice")
	}
	s.result = Result{Status: status, Err: err, Items: s.pushed}
	close(s.items)
	close(s.done)
}

// Items returns the channel of scanned items. It is closed by Finish.
func (s *Sink) Items() <-chan KeyValue {
	return s.items
}

// Done is closed once the scan finished.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Result blocks until the scan finished and returns its outcome.
func (s *Sink) Result() Result {
	<-s.done
	return s.result
}

// Collect drains the sink and returns all items together with the result.
func (s *Sink) Collect() ([]KeyValue, Result) {
	var items []KeyValue
	for kv := range s.items {
		items = append(items, kv)
	}
	return items, s.Result()
}
