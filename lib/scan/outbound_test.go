package scan

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// TestOutboundBasicOperations tests basic push and consume functionality
func TestOutboundBasicOperations(t *testing.T) {
	q := NewOutbound[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Errorf("Expected %d, got %v", i, val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", val)
	case <-time.After(10 * time.Millisecond):
		// expected, queue is empty
	}
}

// TestOutboundConcurrentProducers verifies the queue works correctly with multiple producers
func TestOutboundConcurrentProducers(t *testing.T) {
	q := NewOutbound[int]()
	defer q.Close()

	const numProducers = 10
	const itemsPerProducer = 1000
	totalItems := numProducers * itemsPerProducer

	received := make(map[int]bool, totalItems)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for len(received) < totalItems {
			select {
			case val := <-q.Recv():
				if received[val] {
					t.Errorf("Duplicate item received: %v", val)
				}
				received[val] = true
			case <-time.After(2 * time.Second):
				t.Errorf("Timeout waiting for items, received %d of %d", len(received), totalItems)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(producerID int) {
			defer wg.Done()
			base := producerID * itemsPerProducer
			for i := 0; i < itemsPerProducer; i++ {
				if !q.Push(base + i) {
					t.Errorf("Producer %d failed to push item %d", producerID, i)
				}
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumer to finish")
	}
}

// TestOutboundClose verifies that pending items survive Close
func TestOutboundClose(t *testing.T) {
	q := NewOutbound[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	q.Close()

	if q.Push(100) {
		t.Error("Should not be able to push after queue is closed")
	}

	for i := 0; i < 5; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Errorf("Expected %d, got %v", i, val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d after close", i)
		}
	}

	if _, ok := <-q.Recv(); ok {
		t.Error("Channel should be closed but is still open")
	}
}

// TestOutboundAbandon verifies that an abandoned queue releases its delivery goroutine
func TestOutboundAbandon(t *testing.T) {
	q := NewOutbound[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}

	// nobody reads, the delivery goroutine is blocked on the first item
	q.Abandon()
	q.Abandon()

	finished := make(chan struct{})
	go func() {
		q.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("delivery goroutine did not exit after Abandon")
	}

	if q.Push(1) {
		t.Error("Should not be able to push after queue was abandoned")
	}
}

// TestOutboundOrdering tests that a single producer is delivered in push order
func TestOutboundOrdering(t *testing.T) {
	q := NewOutbound[int]()
	defer q.Close()

	const itemCount = 10000
	go func() {
		for i := 0; i < itemCount; i++ {
			q.Push(i)
		}
	}()

	for i := 0; i < itemCount; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Fatalf("Expected %d, got %d", i, val)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}
}

// TestOutboundPushThenClose verifies that an item pushed right before Close is delivered
// while the delivery goroutine is about to go idle
func TestOutboundPushThenClose(t *testing.T) {
	runs := 20000
	if testing.Short() {
		runs = 2000
	}

	for run := 0; run < runs; run++ {
		q := NewOutbound[int]()

		// the consumer has drained the queue when the first item arrives
		q.Push(0)
		select {
		case <-q.Recv():
		case <-time.After(time.Second):
			t.Fatalf("run %d: timeout waiting for the first item", run)
		}
		q.Push(1)
		q.Close()

		received := 0
		for range q.Recv() {
			received++
		}
		if received != 1 {
			t.Fatalf("run %d: expected the last item before Close, received %d", run, received)
		}
	}
}

// BenchmarkOutboundSingleProducer benchmarks the queue with a single producer
func BenchmarkOutboundSingleProducer(b *testing.B) {
	q := NewOutbound[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(i)
	}
}
