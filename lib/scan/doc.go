// Package scan implements the streaming scan pipeline of skunkr. It bridges an engine cursor,
// which is bound to a read transaction and must be driven synchronously, with an asynchronous
// response stream towards a remote client.
//
// Pipeline:
//
//	service layer --Handoff[Request]--> producer --Sink (bounded)--> Relay --Outbound (unbounded)--> transport
//
// Key Components:
//
//   - Handoff: A one-shot future carrying the Request from the request handler to the producer
//     goroutine. Sending twice, receiving before the send or receiving twice panics.
//
//   - Sink: A bounded channel (DefaultBufferSize = 10) with a per-item send timeout
//     (DefaultSendTimeout = 3s). The producer blocks while the sink is full, so a slow consumer
//     never causes unbounded memory growth. If the sink stays full for the whole timeout,
//     Push fails with ErrSendTimeout and the producer aborts. The producer finishes the sink
//     with a Status that travels to the client as the stream trailer.
//
//   - Relay: Forwards the items of a sink one-for-one to an Outbound queue and closes it once
//     the sink is closed.
//
//   - Outbound: An unbounded lock-free MPSC queue consumed by the transport. A consumer that
//     goes away calls Abandon, which stops the relay; the resulting backpressure ends the
//     producer through its send timeout. This closure chain is the only cancellation mechanism.
//
// States of a scan:
//
//	Awaiting Request -> Validating Table -> Iterating -> Completed
//	                                    |            \-> Aborted (send-timeout | engine-error)
//	                                    \-> Aborted (table-missing)
package scan
