package store

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/kvorm/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// KeyValue is a single entry of a batched write
type KeyValue struct {
	Key   string
	Value []byte
}

// IStore is the generic interface for interacting with a key–value store.
// Write operations return only an error (nil on success),
// read operations return the requested data along with an error (nil on success).
type IStore interface {
	// Set inserts or updates a key–value pair.
	Set(key string, value []byte) (err error)
	// SetE inserts or updates a key–value pair with a lifetime.
	// After expireIn the value is hidden, after deleteIn the key is gone. Zero means never.
	SetE(key string, value []byte, expireIn, deleteIn time.Duration) (err error)
	// SetEIfUnset inserts a key–value pair if the key does not exist.
	// No error is returned if the key already exists.
	SetEIfUnset(key string, value []byte, expireIn, deleteIn time.Duration) (err error)
	// MSetE writes all entries with the same lifetime.
	MSetE(entries []KeyValue, expireIn, deleteIn time.Duration) (err error)
	// Expire expires the value for a key. The key is still findable with the Has() method.
	Expire(key string) (err error)
	// Delete removes the given keys. Missing keys are ignored.
	Delete(keys ...string) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// MGet returns the values for all keys in the same order as keys.
	MGet(keys []string) (values [][]byte, found []bool, err error)
	// Has returns whether a key exists in the store, even if its value is expired.
	Has(key string) (loaded bool, err error)
	// Scan returns every key starting with prefix, in no particular order.
	Scan(prefix string) (keys []string, err error)
	// FlushAll removes every key of the store.
	FlushAll() (err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close releases the handle.
	Close() (err error)
}

// Dialer opens a new handle to a store
type Dialer func() (IStore, error)

// Shared returns a Dialer that always hands out s.
// Closing a handle obtained from it does not close s.
func Shared(s IStore) Dialer {
	return func() (IStore, error) {
		return sharedHandle{s}, nil
	}
}

type sharedHandle struct {
	IStore
}

func (sharedHandle) Close() error { return nil }

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
