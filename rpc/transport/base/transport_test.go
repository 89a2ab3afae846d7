package base

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test connectors (tcp on a random loopback port)
// --------------------------------------------------------------------------

type testServerConnector struct {
	addr chan string
}

func (c *testServerConnector) GetName() string { return "test" }

func (c *testServerConnector) Listen(config common.ServerTransportConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return nil, err
	}
	c.addr <- listener.Addr().String()
	return listener, nil
}

func (c *testServerConnector) UpgradeConnection(net.Conn, common.ServerTransportConfig) error {
	return nil
}

type testClientConnector struct{}

func (c *testClientConnector) GetName() string { return "test" }

func (c *testClientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *testClientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error {
	return nil
}

// startPair starts a server with handler and returns a connected client
func startPair(t *testing.T, handler transport.ServerHandleFunc) transport.IRPCClientTransport {
	t.Helper()

	connector := &testServerConnector{addr: make(chan string, 1)}
	server := NewBaseServerTransport(connector, 1024)
	server.RegisterHandler(handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(common.ServerConfig{
			TimeoutSecond: 2,
			Transport:     common.ServerTransportConfig{Endpoint: "127.0.0.1:0", WorkersPerConn: 4},
		})
	}()

	var addr string
	select {
	case addr = <-connector.addr:
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	}

	client := NewBaseClientTransport(&testClientConnector{})
	require.NoError(t, client.Connect(common.ClientConfig{
		TimeoutSecond: 2,
		Transport:     common.ClientTransportConfig{Endpoints: []string{addr}, RetryCount: 1, ConnectionsPerEndpoint: 2},
	}))

	t.Cleanup(func() {
		_ = client.Close()
		require.NoError(t, server.Close())
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Listen did not return after Close")
		}
	})

	return client
}

// --------------------------------------------------------------------------
// Frames
// --------------------------------------------------------------------------

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 42, FlagFinal, []byte("payload")))
	require.NoError(t, WriteFrame(&buf, 43, 0, nil))

	requestID, flags, data, err := ReadFrame(&buf, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), requestID)
	assert.Equal(t, FlagFinal, flags)
	assert.Equal(t, []byte("payload"), data)

	requestID, flags, data, err = ReadFrame(&buf, make([]byte, 4), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), requestID)
	assert.Zero(t, flags)
	assert.Empty(t, data)

	_, _, _, err = ReadFrame(&buf, nil, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 1, 0, make([]byte, 100)))

	_, _, _, err := ReadFrame(&buf, nil, 10)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 1, 0, []byte("payload")))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])

	_, _, _, err := ReadFrame(truncated, nil, 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// --------------------------------------------------------------------------
// Client and server
// --------------------------------------------------------------------------

func TestUnaryRequests(t *testing.T) {
	client := startPair(t, func(req []byte, _ func([]byte) error) []byte {
		return append([]byte("echo:"), req...)
	})

	for i := 0; i < 20; i++ {
		resp, err := client.Send([]byte(fmt.Sprintf("req-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("echo:req-%d", i), string(resp))
	}
}

func TestStreamedResponses(t *testing.T) {
	client := startPair(t, func(req []byte, stream func([]byte) error) []byte {
		for i := 0; i < 50; i++ {
			if err := stream([]byte(fmt.Sprintf("%s-%02d", req, i))); err != nil {
				return []byte("aborted")
			}
		}
		return []byte("end")
	})

	stream, err := client.Stream([]byte("item"))
	require.NoError(t, err)
	defer stream.Close()

	for i := 0; i < 50; i++ {
		resp, err := stream.Recv()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("item-%02d", i), string(resp))
	}

	resp, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "end", string(resp))

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSendSkipsStreamedResponses(t *testing.T) {
	client := startPair(t, func(req []byte, stream func([]byte) error) []byte {
		_ = stream([]byte("ignored"))
		return []byte("final")
	})

	resp, err := client.Send([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "final", string(resp))
}

func TestConcurrentStreams(t *testing.T) {
	client := startPair(t, func(req []byte, stream func([]byte) error) []byte {
		for i := 0; i < 10; i++ {
			_ = stream(req)
		}
		return req
	})

	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		go func(g int) {
			want := fmt.Sprintf("stream-%d", g)
			stream, err := client.Stream([]byte(want))
			if err != nil {
				errs <- err
				return
			}
			defer stream.Close()

			count := 0
			for {
				resp, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					errs <- err
					return
				}
				if string(resp) != want {
					errs <- fmt.Errorf("got %q on stream %q", resp, want)
					return
				}
				count++
			}
			if count != 11 {
				errs <- fmt.Errorf("stream %q delivered %d responses", want, count)
				return
			}
			errs <- nil
		}(g)
	}

	for g := 0; g < 8; g++ {
		assert.NoError(t, <-errs)
	}
}

func TestStreamCloseEarly(t *testing.T) {
	done := make(chan struct{})
	client := startPair(t, func(req []byte, stream func([]byte) error) []byte {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = stream([]byte("item"))
		}
		return []byte("end")
	})

	stream, err := client.Stream([]byte("x"))
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	// the server finishes, the remaining frames are dropped by the client
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish")
	}

	// the connection is still usable
	resp, err := client.Send([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, "end", string(resp))
}

func TestRequestTimeout(t *testing.T) {
	client := startPair(t, func(req []byte, _ func([]byte) error) []byte {
		time.Sleep(3 * time.Second)
		return req
	})

	_, err := client.Send([]byte("slow"))
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestConnectWithoutEndpoints(t *testing.T) {
	client := NewBaseClientTransport(&testClientConnector{})
	assert.Error(t, client.Connect(common.ClientConfig{}))
}

func TestListenWithoutHandler(t *testing.T) {
	server := NewBaseServerTransport(&testServerConnector{addr: make(chan string, 1)}, 1024)
	assert.Error(t, server.Listen(common.ServerConfig{}))
}
