package lstore

import (
	"errors"
	"fmt"

	"github.com/christophercampbell/skunkr/lib/db"
	"github.com/christophercampbell/skunkr/lib/scan"
	"github.com/christophercampbell/skunkr/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

type storeImpl struct {
	db db.KVDB
}

// NewLocalStore creates a new local store instance on top of the database created by factory.
// A factory error is returned as is; the caller must not start without a database.
func NewLocalStore(factory store.DBFactory) (store.IStore, error) {
	database, err := factory()
	if err != nil {
		return nil, err
	}
	return &storeImpl{db: database}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(table string, key, value []byte) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureSet) {
		return false, store.NewError(store.RetCUnsupportedOperation, "Set operation is not supported")
	}

	if err := s.db.Set(table, key, value); err != nil {
		Logger.Errorf("set %q in table %q failed: %v", key, table, err)
		code := store.RetCWriteFailed
		if errors.Is(err, db.ErrTableLimit) {
			code = store.RetCTableLimit
		}
		return false, store.NewError(code, err.Error())
	}
	return true, nil
}

func (s *storeImpl) Get(table string, key []byte) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, false, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
	}

	value, loaded, err := s.db.Get(table, key)
	if err != nil {
		Logger.Errorf("get %q from table %q failed: %v", key, table, err)
		return nil, false, store.NewError(store.RetCInternalError, err.Error())
	}
	return value, loaded, nil
}

func (s *storeImpl) Scan(source *scan.Handoff[scan.Request], sink *scan.Sink) {
	go s.produce(source, sink)
}

// produce runs one scan: it takes the request, iterates the table inside one read
// transaction and finishes the sink with the terminal status.
func (s *storeImpl) produce(source *scan.Handoff[scan.Request], sink *scan.Sink) {
	req := source.Recv()

	if !s.db.SupportsFeature(db.FeatureScan) {
		sink.Finish(scan.StatusEngineError, store.NewError(store.RetCUnsupportedOperation, "Scan operation is not supported"))
		return
	}

	err := s.db.Scan(req.Table, req.From, func(key, value []byte) error {
		return sink.Push(scan.KeyValue{Key: key, Value: value})
	})

	switch {
	case err == nil:
		sink.Finish(scan.StatusCompleted, nil)
	case errors.Is(err, db.ErrTableNotFound):
		Logger.Warningf("scan: table %q does not exist", req.Table)
		sink.Finish(scan.StatusTableMissing, nil)
	case errors.Is(err, scan.ErrSendTimeout):
		Logger.Errorf("scan of table %q aborted: %v", req.Table, err)
		sink.Finish(scan.StatusSendTimeout, err)
	default:
		Logger.Errorf("scan of table %q failed: %v", req.Table, err)
		sink.Finish(scan.StatusEngineError, store.NewError(store.RetCInternalError, fmt.Sprintf("scan failed: %v", err)))
	}
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

func (s *storeImpl) Close() error {
	return s.db.Close()
}
