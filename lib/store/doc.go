// Package store defines the key-value transport consumed by the object mapper
// in lib/orm, together with a unified error type.
//
// Key Components:
//
//   - IStore: single-key and batched reads and writes with optional lifetimes,
//     prefix scans and a full flush. All implementations share this interface, so
//     the mapper runs unchanged against the in-process store (lstore) and the
//     remote client (rpc/client).
//
//   - Dialer: opens a handle to a store. Shared wraps an existing instance
//     whose lifetime is managed by the caller.
//
//   - Error: a return code plus a message, so callers can tell unsupported
//     operations from internal failures.
package store
