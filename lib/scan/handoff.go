package scan

import "sync"

// Handoff carries exactly one value from the goroutine that builds a request to the
// goroutine that executes it. It is a one-shot future: Send must be called exactly once,
// and Recv exactly once after Send returned.
//
// Misuse (a second Send, a Recv before Send, or a second Recv) is a programming error
// and panics.
type Handoff[T any] struct {
	mu       sync.Mutex
	value    T
	sent     bool
	received bool
}

// NewHandoff creates an empty handoff.
func NewHandoff[T any]() *Handoff[T] {
	return &Handoff[T]{}
}

// Send stores the value. It never blocks.
func (h *Handoff[T]) Send(value T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sent {
		panic("scan: handoff value sent twice")
	}
	h.value = value
	h.sent = true
}

// Recv takes the value. It never blocks.
func (h *Handoff[T]) Recv() T {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.sent {
		panic("scan: handoff received before send")
	}
	if h.received {
		panic("scan: handoff value received twice")
	}
	h.received = true

	v := h.value
	var zero T
	h.value = zero
	return v
}

// Ready reports whether a value was sent and not yet received.
func (h *Handoff[T]) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sent && !h.received
}
