package scan

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff(t *testing.T) {
	t.Run("SendRecv", func(t *testing.T) {
		h := NewHandoff[Request]()
		assert.False(t, h.Ready())
		h.Send(Request{Table: "t", From: []byte("b")})
		assert.True(t, h.Ready())

		req := h.Recv()
		assert.Equal(t, "t", req.Table)
		assert.Equal(t, []byte("b"), req.From)
		assert.False(t, h.Ready())
	})

	t.Run("SendTwice", func(t *testing.T) {
		h := NewHandoff[int]()
		h.Send(1)
		assert.Panics(t, func() { h.Send(2) })
	})

	t.Run("RecvBeforeSend", func(t *testing.T) {
		h := NewHandoff[int]()
		assert.Panics(t, func() { h.Recv() })
	})

	t.Run("RecvTwice", func(t *testing.T) {
		h := NewHandoff[int]()
		h.Send(1)
		assert.Equal(t, 1, h.Recv())
		assert.Panics(t, func() { h.Recv() })
	})

	t.Run("AcrossGoroutines", func(t *testing.T) {
		h := NewHandoff[string]()
		h.Send("x")
		got := make(chan string)
		go func() { got <- h.Recv() }()
		assert.Equal(t, "x", <-got)
	})
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusUnknown, StatusCompleted, StatusTableMissing, StatusSendTimeout, StatusEngineError} {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	assert.Equal(t, "send-timeout", StatusSendTimeout.String())
	assert.Equal(t, "Status(99)", Status(99).String())
	_, err := ParseStatus("nope")
	assert.Error(t, err)

	assert.False(t, StatusCompleted.Aborted())
	assert.True(t, StatusTableMissing.Aborted())
	assert.True(t, StatusSendTimeout.Aborted())
}

func TestSink(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		s := NewSink(0, 0)
		assert.Equal(t, DefaultBufferSize, cap(s.items))
		assert.Equal(t, DefaultSendTimeout, s.sendTimeout)
	})

	t.Run("Collect", func(t *testing.T) {
		s := NewSink(2, time.Second)
		go func() {
			for i := 0; i < 5; i++ {
				if err := s.Push(KeyValue{Key: []byte{byte(i)}}); err != nil {
					s.Finish(StatusSendTimeout, err)
					return
				}
			}
			s.Finish(StatusCompleted, nil)
		}()

		items, res := s.Collect()
		require.Len(t, items, 5)
		for i, kv := range items {
			assert.Equal(t, []byte{byte(i)}, kv.Key)
		}
		assert.Equal(t, StatusCompleted, res.Status)
		assert.Equal(t, 5, res.Items)
		assert.NoError(t, res.Err)
	})

	t.Run("BackpressureTimeout", func(t *testing.T) {
		s := NewSink(2, 20*time.Millisecond)
		require.NoError(t, s.Push(KeyValue{}))
		require.NoError(t, s.Push(KeyValue{}))

		start := time.Now()
		err := s.Push(KeyValue{})
		assert.True(t, errors.Is(err, ErrSendTimeout))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

		s.Finish(StatusSendTimeout, err)
		res := s.Result()
		assert.Equal(t, StatusSendTimeout, res.Status)
		assert.Equal(t, 2, res.Items)
	})

	t.Run("FinishTwice", func(t *testing.T) {
		s := NewSink(1, time.Second)
		s.Finish(StatusCompleted, nil)
		assert.Panics(t, func() { s.Finish(StatusCompleted, nil) })
	})
}

func TestRelay(t *testing.T) {
	t.Run("ForwardsInOrder", func(t *testing.T) {
		sink := NewSink(3, time.Second)
		out := Relay(sink)

		go func() {
			for i := 0; i < 100; i++ {
				_ = sink.Push(KeyValue{Key: []byte(fmt.Sprintf("k%03d", i))})
			}
			sink.Finish(StatusCompleted, nil)
		}()

		i := 0
		for kv := range out.Recv() {
			assert.Equal(t, fmt.Sprintf("k%03d", i), string(kv.Key))
			i++
		}
		assert.Equal(t, 100, i)
		assert.Equal(t, StatusCompleted, sink.Result().Status)
	})

	t.Run("AbandonTimesOutProducer", func(t *testing.T) {
		sink := NewSink(1, 20*time.Millisecond)
		out := Relay(sink)
		out.Abandon()

		var err error
		for i := 0; i < 100 && err == nil; i++ {
			err = sink.Push(KeyValue{Key: []byte{byte(i)}})
		}
		assert.True(t, errors.Is(err, ErrSendTimeout))
		sink.Finish(StatusSendTimeout, err)
	})
}
