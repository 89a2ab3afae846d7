package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/transport"
	"github.com/christophercampbell/skunkr/rpc/transport/base"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURLs []*url.URL
	client     *http.Client
	counter    uint32
	retryCount int
	maxSize    int
}

// httpResponseStream reads the frames of one response body
type httpResponseStream struct {
	body    io.ReadCloser
	maxSize int
	done    bool
	once    sync.Once
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (transport *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Parse each server URL
	parsedURLs := make([]*url.URL, len(config.Transport.Endpoints))
	for i, server := range config.Transport.Endpoints {
		if !strings.Contains(server, "://") {
			server = "http://" + server
		}
		parsedURL, err := url.Parse(server)
		if err != nil {
			return err
		}
		parsedURLs[i] = parsedURL.JoinPath(rpcPath)
	}

	// Create client with default transport
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: max(10, config.Transport.ConnectionsPerEndpoint),
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Set the client and server URLs
	transport.client = client
	transport.serverURLs = parsedURLs
	transport.counter = 0
	transport.retryCount = max(1, config.Transport.RetryCount)
	transport.maxSize = config.Transport.MaxMessageSize()

	// No error
	return nil
}

func (transport *httpClientTransport) Send(req []byte) ([]byte, error) {
	stream, err := transport.Stream(req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	// unary requests only care about the final frame
	for {
		resp, err := stream.Recv()
		if err != nil {
			return nil, err
		}
		if stream.(*httpResponseStream).done {
			return resp, nil
		}
	}
}

func (transport *httpClientTransport) Stream(req []byte) (transport.IResponseStream, error) {
	// Check if the transport is initialized
	if transport.client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	// Send the request (with retries)
	var (
		httpResponse *http.Response
		err          error
	)
	for i := 0; i < transport.retryCount; i++ {
		// Select the next server via round-robin
		idx := atomic.AddUint32(&transport.counter, 1) % uint32(len(transport.serverURLs))
		serverURL := transport.serverURLs[idx]

		httpResponse, err = transport.client.Post(serverURL.String(), "application/octet-stream", bytes.NewReader(req))
		if err == nil {
			break
		}
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, transport.retryCount, err)
	}
	if err != nil {
		return nil, err
	}

	// Check if the response status code is OK
	if httpResponse.StatusCode != http.StatusOK {
		_ = httpResponse.Body.Close()
		return nil, fmt.Errorf("http error: %s", httpResponse.Status)
	}

	return &httpResponseStream{body: httpResponse.Body, maxSize: transport.maxSize}, nil
}

func (transport *httpClientTransport) Close() error {
	// Close the client
	if transport.client != nil {
		transport.client.CloseIdleConnections()
	}

	// Reset the client and server URLs
	transport.client = nil
	transport.serverURLs = nil

	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IResponseStream)
// --------------------------------------------------------------------------

func (s *httpResponseStream) Recv() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}

	_, flags, data, err := base.ReadFrame(s.body, nil, s.maxSize)
	if err != nil {
		s.done = true
		_ = s.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("response ended without final frame: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}

	if flags&base.FlagFinal != 0 {
		s.done = true
		_ = s.Close()
	}
	return data, nil
}

func (s *httpResponseStream) Close() error {
	var err error
	s.once.Do(func() {
		if err = s.body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	})
	return err
}
