package lstore

import (
	"github.com/ValentinKolb/kvorm/lib/db"
	"github.com/ValentinKolb/kvorm/lib/store"
	"sync/atomic"
	"time"
)

type storeImpl struct {
	db     db.KVDB
	closed atomic.Bool
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore(factory store.DBFactory) store.IStore {
	return &storeImpl{
		db: factory(),
	}
}

// check returns an error if the store is closed or the database lacks feature
func (s *storeImpl) check(feature db.Feature, op string) error {
	if s.closed.Load() {
		return store.NewError(store.RetCInvalidOperation, op+" on closed store")
	}
	if !s.db.SupportsFeature(feature) {
		return store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported")
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if err := s.check(db.FeatureSet, "Set"); err != nil {
		return err
	}
	s.db.Set(key, value)
	return nil
}

func (s *storeImpl) SetE(key string, value []byte, expireIn, deleteIn time.Duration) error {
	if err := s.check(db.FeatureSetE, "SetE"); err != nil {
		return err
	}
	if expireIn < 0 || deleteIn < 0 {
		return store.NewError(store.RetCInvalidOperation, "negative lifetime")
	}
	s.db.SetE(key, value, expireIn, deleteIn)
	return nil
}

func (s *storeImpl) SetEIfUnset(key string, value []byte, expireIn, deleteIn time.Duration) error {
	if err := s.check(db.FeatureSetEIfUnset, "SetEIfUnset"); err != nil {
		return err
	}
	if expireIn < 0 || deleteIn < 0 {
		return store.NewError(store.RetCInvalidOperation, "negative lifetime")
	}
	s.db.SetEIfUnset(key, value, expireIn, deleteIn)
	return nil
}

func (s *storeImpl) MSetE(entries []store.KeyValue, expireIn, deleteIn time.Duration) error {
	if err := s.check(db.FeatureSetE, "MSetE"); err != nil {
		return err
	}
	if expireIn < 0 || deleteIn < 0 {
		return store.NewError(store.RetCInvalidOperation, "negative lifetime")
	}
	for _, e := range entries {
		s.db.SetE(e.Key, e.Value, expireIn, deleteIn)
	}
	return nil
}

func (s *storeImpl) Expire(key string) error {
	if err := s.check(db.FeatureExpire, "Expire"); err != nil {
		return err
	}
	s.db.Expire(key)
	return nil
}

func (s *storeImpl) Delete(keys ...string) error {
	if err := s.check(db.FeatureDelete, "Delete"); err != nil {
		return err
	}
	for _, key := range keys {
		s.db.Delete(key)
	}
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if err := s.check(db.FeatureGet, "Get"); err != nil {
		return nil, false, err
	}
	val, ok := s.db.Get(key)
	return val, ok, nil
}

func (s *storeImpl) MGet(keys []string) ([][]byte, []bool, error) {
	if err := s.check(db.FeatureGet, "MGet"); err != nil {
		return nil, nil, err
	}
	values := make([][]byte, len(keys))
	found := make([]bool, len(keys))
	for i, key := range keys {
		values[i], found[i] = s.db.Get(key)
	}
	return values, found, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if err := s.check(db.FeatureHas, "Has"); err != nil {
		return false, err
	}
	return s.db.Has(key), nil
}

func (s *storeImpl) Scan(prefix string) ([]string, error) {
	if err := s.check(db.FeatureKeys, "Scan"); err != nil {
		return nil, err
	}
	return s.db.Keys(prefix), nil
}

func (s *storeImpl) FlushAll() error {
	if err := s.check(db.FeatureFlush, "FlushAll"); err != nil {
		return err
	}
	s.db.Flush()
	return nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

// Close stops the underlying database. Further calls fail with RetCInvalidOperation.
func (s *storeImpl) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
