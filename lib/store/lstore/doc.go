// Package lstore implements a local, in-memory, single-node key-value store based on the
// store.IStore interface. It is a thin wrapper around any db.KVDB implementation.
// Data is not persisted between process restarts.
//
// Before executing an operation the store checks whether the underlying database
// supports it and returns store.RetCUnsupportedOperation otherwise. Batched
// operations (MSetE, MGet, Delete with several keys) are executed key by key and
// are not atomic.
//
// Usage Example:
//
//	s := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
//	defer s.Close()
//
//	// keep a session for five minutes
//	err := s.SetE("session_%&_123", sessionData, 0, 5*time.Minute)
//	value, exists, err := s.Get("session_%&_123")
package lstore
