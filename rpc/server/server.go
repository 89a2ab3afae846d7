package server

import (
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/db/engines"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/christophercampbell/skunkr/lib/store/lstore"
	"github.com/christophercampbell/skunkr/rpc/common"
	"github.com/christophercampbell/skunkr/rpc/serializer"
	"github.com/christophercampbell/skunkr/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewIStoreServerAdapter(config.ScanBufferSize, config.ScanTimeout),
		metrics:    newServerMetrics(),
	}
}

// RPCServer serves one store over one transport
type RPCServer struct {
	config        common.ServerConfig
	transport     transport.IRPCServerTransport
	serializer    serializer.IRPCSerializer
	adapter       IRPCServerAdapter
	store         store.IStore
	metrics       *serverMetrics
	metricsServer *http.Server
	closeOnce     sync.Once
}

// Serve starts the RPC server
// This function will also open the database and start the transport layer.
// It blocks until the server is closed.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport, the metrics endpoint and closes the database
func (s *RPCServer) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if err := s.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close transport: %w", err))
		}
		if s.metricsServer != nil {
			if err := s.metricsServer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close metrics endpoint: %w", err))
			}
		}
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close store: %w", err))
			}
		}
		Logger.Infof("skunkr server stopped")
	})
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCServer) init() error {
	// Init logger
	if err := common.InitLoggers(s.config.LogLevel, s.config.LogColor); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	impl, err := engines.ParseImplementation(s.config.Engine)
	if err != nil {
		return err
	}
	opts := &db.Options{
		MaxTables: s.config.MaxTables,
		NoSync:    s.config.NoSync,
	}

	// Function to create the database instance
	dbFactory := func() (db.KVDB, error) {
		return engines.Open(impl, s.config.DataDir, opts)
	}

	st, err := lstore.NewLocalStore(dbFactory)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", impl, err)
	}
	s.store = st
	Logger.Infof("opened %s database", impl)

	if s.config.MetricsEndpoint != "" {
		s.metrics.registerStore(st)
		s.metricsServer = &http.Server{
			Addr:              s.config.MetricsEndpoint,
			Handler:           s.metrics.handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			Logger.Infof("Serving metrics on http://%s/metrics", s.config.MetricsEndpoint)
			if err := s.metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				Logger.Errorf("metrics endpoint failed: %v", err)
			}
		}()
	}

	// Configure the transport layer
	s.transport.RegisterHandler(s.handle)

	Logger.Infof("skunkr setup completed successfully")
	return nil
}

// handle decodes a request, lets the adapter handle it and encodes the responses
func (s *RPCServer) handle(req []byte, stream func(resp []byte) error) []byte {
	start := time.Now()

	var msg common.Message
	var respMsg *common.Message
	streamed := 0

	// Decode the request
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the adapter handle the request
		respMsg = s.adapter.Handle(&msg, s.store, func(item *common.Message) error {
			data, err := s.serializer.Serialize(*item)
			if err != nil {
				return fmt.Errorf("failed to serialize response: %w", err)
			}
			if err := stream(data); err != nil {
				return err
			}
			streamed++
			return nil
		})
	}

	s.metrics.request(msg.MsgType, start, respMsg.Err != "")
	if respMsg.MsgType == common.MsgTKVScanEnd {
		s.metrics.scanFinished(respMsg.Status, streamed)
	}

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}
