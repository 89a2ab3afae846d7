package scan

import "github.com/lni/dragonboat/v4/logger"

var Logger = logger.GetLogger("scan")

// Relay republishes every item of the sink one-for-one onto a new unbounded outbound queue.
// The queue is closed when the sink closes. If the consumer abandons the queue, the relay
// stops reading from the sink; the sink then fills up and the producer's send timeout
// ends the scan.
func Relay(sink *Sink) *Outbound[KeyValue] {
	out := NewOutbound[KeyValue]()

	go func() {
		defer out.Close()
		forwarded := 0
		for kv := range sink.Items() {
			if !out.Push(kv) {
				Logger.Debugf("relay stopped after %d items: consumer abandoned the stream", forwarded)
				return
			}
			forwarded++
		}
	}()

	return out
}
