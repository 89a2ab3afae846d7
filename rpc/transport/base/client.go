package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	// ErrRequestTimeout is returned if no response frame arrived within the configured timeout
	ErrRequestTimeout = errors.New("request timed out")
	// ErrStreamClosed is returned if the connection failed while a response was pending
	ErrStreamClosed = errors.New("response stream closed")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult is one response frame (or the error that ended the response)
type responseResult struct {
	data  []byte
	final bool
	err   error
}

// clientConnection represents a single net connection
type clientConnection struct {
	conn     net.Conn
	endpoint string
	stopCh   chan struct{} // Close signal for the reader goroutine
	// response frames per request ID; the reader goroutine must never block, so every
	// request gets an unbounded queue
	pending *xsync.MapOf[uint64, *scan.Outbound[responseResult]]
	connMu  sync.Mutex // Protects the connection itself
	parent  *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextRequestID uint64 // Atomic counter for unique request IDs
}

// responseStream implements transport.IResponseStream on top of a pending request
type responseStream struct {
	conn      *clientConnection
	requestID uint64
	frames    *scan.Outbound[responseResult]
	timeout   time.Duration
	done      bool
	closeOnce sync.Once
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector:     connector,
		nextRequestID: 1, // Start from 1
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	t.config = config

	// Set default value for ConnectionsPerEndpoint
	connectionsPerEP := max(1, config.Transport.ConnectionsPerEndpoint)

	// Initialize client connections
	for _, endpoint := range config.Transport.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint: endpoint,
				stopCh:   make(chan struct{}),
				pending:  xsync.NewMapOf[uint64, *scan.Outbound[responseResult]](),
				parent:   t,
			}

			// Establish the initial connection using reconnect
			if err := clientConn.reconnect(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}

			t.connectionsMu.Lock()
			t.connections = append(t.connections, clientConn)
			t.connectionsMu.Unlock()

			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)

			// Start the response reader
			go clientConn.readResponses()
		}
	}

	t.connectionsMu.RLock()
	connected := len(t.connections)
	t.connectionsMu.RUnlock()

	// Check if we have at least one connection
	if connected == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	Logger.Infof("Connected to %d out of %d connections to %d endpoints using %s transport",
		connected, len(config.Transport.Endpoints)*connectionsPerEP, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	var resp []byte

	err := t.withRetry(func(conn *clientConnection) error {
		requestID := atomic.AddUint64(&t.nextRequestID, 1)
		frames, err := conn.dispatch(requestID, req)
		if err != nil {
			return err
		}
		defer conn.forget(requestID, frames)

		for {
			result, err := receive(frames, t.timeout())
			if err != nil {
				return err
			}
			if result.err != nil {
				return result.err
			}
			// unary requests only care about the final frame
			if result.final {
				resp = result.data
				return nil
			}
		}
	})

	return resp, err
}

func (t *clientTransport) Stream(req []byte) (transport.IResponseStream, error) {
	var stream *responseStream

	// only dispatching is retried, a stream that already delivered frames is not replayed
	err := t.withRetry(func(conn *clientConnection) error {
		requestID := atomic.AddUint64(&t.nextRequestID, 1)
		frames, err := conn.dispatch(requestID, req)
		if err != nil {
			return err
		}
		stream = &responseStream{
			conn:      conn,
			requestID: requestID,
			frames:    frames,
			timeout:   t.timeout(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stream, nil
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IResponseStream)
// --------------------------------------------------------------------------

func (s *responseStream) Recv() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	result, err := receive(s.frames, s.timeout)
	if err != nil {
		s.done = true
		_ = s.Close()
		return nil, err
	}
	if result.err != nil {
		s.done = true
		return nil, result.err
	}
	if result.final {
		s.done = true
	}
	return result.data, nil
}

func (s *responseStream) Close() error {
	s.closeOnce.Do(func() {
		s.conn.forget(s.requestID, s.frames)
	})
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// timeout returns the per response timeout (0 = no timeout)
func (t *clientTransport) timeout() time.Duration {
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

// withRetry runs fn on the next connections until it succeeds or the retry count is exhausted
func (t *clientTransport) withRetry(fn func(conn *clientConnection) error) error {
	var lastErr error

	// We always try at least once
	maxRetries := max(1, t.config.Transport.RetryCount)

	for i := 0; i < maxRetries; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			return fmt.Errorf("no active connections available")
		}

		err := fn(conn)
		if err == nil {
			return nil
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			backoff(i)
		}
	}

	return fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

// receive waits for the next frame of a request
func receive(frames *scan.Outbound[responseResult], timeout time.Duration) (responseResult, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result, ok := <-frames.Recv():
		if !ok {
			return responseResult{}, ErrStreamClosed
		}
		return result, nil
	case <-timeoutCh:
		return responseResult{}, ErrRequestTimeout
	}
}

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}

	// Simple Round Robin algorithm
	var index uint64
	if len(t.connections) == 1 {
		// optimize for single connection
		index = 0
	} else {
		index = atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	}
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, conn := range t.connections {
		// Signal reader goroutine to stop
		close(conn.stopCh)

		conn.connMu.Lock()
		if conn.conn != nil {
			_ = conn.conn.Close()
		}
		conn.connMu.Unlock()

		conn.failPending(ErrStreamClosed)
	}

	// Empty the list
	t.connections = nil
}

// dispatch registers a request and writes it to the connection
func (c *clientConnection) dispatch(requestID uint64, req []byte) (*scan.Outbound[responseResult], error) {
	frames := scan.NewOutbound[responseResult]()
	c.pending.Store(requestID, frames)

	// Lock the connection only for writing
	c.connMu.Lock()
	var err error
	if c.conn == nil {
		err = fmt.Errorf("connection to %s is closed", c.endpoint)
	} else {
		if timeout := c.parent.timeout(); timeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		}
		err = WriteFrame(c.conn, requestID, 0, req)
	}
	c.connMu.Unlock()

	if err != nil {
		c.forget(requestID, frames)
		return nil, err
	}
	return frames, nil
}

// forget unregisters a request, frames that arrive later are dropped
func (c *clientConnection) forget(requestID uint64, frames *scan.Outbound[responseResult]) {
	c.pending.Delete(requestID)
	frames.Abandon()
}

// failPending ends all pending requests of the connection with err
func (c *clientConnection) failPending(err error) {
	c.pending.Range(func(requestID uint64, frames *scan.Outbound[responseResult]) bool {
		c.pending.Delete(requestID)
		frames.Push(responseResult{err: err})
		frames.Close()
		return true
	})
}

// stopped reports whether the connection was closed by the transport
func (c *clientConnection) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// readResponses reads responses in a loop and distributes them to waiting requests
func (c *clientConnection) readResponses() {
	maxSize := c.parent.config.Transport.MaxMessageSize()

	for !c.stopped() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		// Read the response frame
		requestID, flags, data, err := ReadFrame(conn, nil, maxSize)
		if err != nil {
			if c.stopped() {
				return
			}

			// the stream position is lost, every pending request on this connection fails
			Logger.Warningf("Error reading from %s: %v", c.endpoint, err)
			c.failPending(fmt.Errorf("%w: %v", ErrStreamClosed, err))

			if err := c.reconnectWithRetry(); err != nil {
				Logger.Errorf("Failed to reconnect to %s: %v", c.endpoint, err)
				return
			}
			continue
		}

		// Find the corresponding request
		frames, found := c.pending.Load(requestID)
		if !found {
			Logger.Debugf("Dropping response frame for unknown request ID %d", requestID)
			continue
		}

		final := flags&FlagFinal != 0
		frames.Push(responseResult{data: data, final: final})
		if final {
			c.pending.Delete(requestID)
			frames.Close()
		}
	}
}

// reconnectWithRetry tries to restore the connection using the retry count of the config
func (c *clientConnection) reconnectWithRetry() error {
	var err error
	attempts := max(1, c.parent.config.Transport.RetryCount)
	for i := 0; i < attempts; i++ {
		if c.stopped() {
			return fmt.Errorf("transport closed")
		}
		if err = c.reconnect(); err == nil {
			Logger.Infof("Reconnected to %s", c.endpoint)
			return nil
		}
		backoff(i)
	}
	return err
}

// reconnect establishes or restores a connection to the endpoint
func (c *clientConnection) reconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	// Close the old connection if it exists
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	// Connect to the endpoint
	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %v", c.endpoint, err)
	}

	c.conn = conn
	return nil
}
