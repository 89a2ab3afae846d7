package scan

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node represents a single element in the queue
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Outbound is an unbounded, lock-free multi-producer single-consumer queue.
// Items pushed into the queue are delivered in push order on the channel returned by Recv.
// The channel is closed after Close once all pending items were delivered, or right away
// after Abandon.
type Outbound[T any] struct {
	head      atomic.Pointer[node[T]]
	tail      atomic.Pointer[node[T]]
	out       chan T
	consumer  sync.WaitGroup
	closed    atomic.Bool
	abandoned chan struct{}
	abandon   sync.Once

	// wakes the consumer goroutine
	mu   sync.Mutex
	cond *sync.Cond
}

// NewOutbound creates an empty queue and starts its delivery goroutine.
func NewOutbound[T any]() *Outbound[T] {
	sentinel := &node[T]{}

	q := &Outbound[T]{
		out:       make(chan T),
		abandoned: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push appends an item. It never blocks on the consumer.
// Returns false if the queue was closed or abandoned.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *Outbound[T]) Push(value T) bool {
	if q.closed.Load() || q.isAbandoned() {
		return false
	}

	newNode := &node[T]{value: value}
	var backoff uint8

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// another producer may already have advanced the tail
				q.tail.CompareAndSwap(tailNode, newNode)
				q.signal()
				return true
			}
		} else {
			// help a producer that appended but did not move the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// signal wakes the consumer. The lock pairs with the re-check in consume.
func (q *Outbound[T]) signal() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

func (q *Outbound[T]) isAbandoned() bool {
	select {
	case <-q.abandoned:
		return true
	default:
		return false
	}
}

// consume moves items from the linked list to the output channel
func (q *Outbound[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	var zero T
	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			value := next.value
			q.head.Store(next)

			select {
			case q.out <- value:
			case <-q.abandoned:
				return
			}

			// release the value, the node stays as new sentinel
			next.value = zero
		}

		if q.isAbandoned() {
			return
		}

		// Close happens after the last Push, so an empty queue seen after closed is final.
		// An item pushed between the drain above and the closed check is delivered first.
		if !hasItems && q.closed.Load() {
			if q.head.Load().next.Load() == nil {
				return
			}
			continue
		}

		if !hasItems {
			q.mu.Lock()
			if q.head.Load().next.Load() == nil && !q.closed.Load() && !q.isAbandoned() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the channel on which items are delivered.
func (q *Outbound[T]) Recv() <-chan T {
	return q.out
}

// Close prevents further pushes. Pending items are still delivered.
func (q *Outbound[T]) Close() {
	q.closed.Store(true)
	q.signal()
}

// Abandon is called by a consumer that stops reading. Pending items are dropped,
// further pushes fail and the delivery goroutine exits.
func (q *Outbound[T]) Abandon() {
	q.abandon.Do(func() {
		q.mu.Lock()
		close(q.abandoned)
		q.cond.Broadcast()
		q.mu.Unlock()
	})
}

// Wait blocks until the delivery goroutine exited.
func (q *Outbound[T]) Wait() {
	q.consumer.Wait()
}

// IsClosed returns true if the queue is closed.
func (q *Outbound[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns an approximate count of the pending items.
// This is O(n) and should only be used for debugging.
func (q *Outbound[T]) Len() int {
	count := 0
	for current := q.head.Load(); ; count++ {
		next := current.next.Load()
		if next == nil {
			break
		}
		current = next
	}
	return count
}
