// Package rpc makes a store reachable over the network. It sits between the
// object mapper (or the cli) and the stores served by a kvorm server.
//
// The package is organized into several subpackages:
//
//   - common: the Message protocol, client and server configuration and logging.
//
//   - transport: network abstractions, implemented over HTTP. The HTTP server
//     also exposes /metrics and /stats.
//
//   - serializer: Message serialization (CBOR, JSON, GOB).
//
//   - client: store.IStore and lockmgr.ILockManager implementations that forward
//     every call to a server shard, so the mapper runs unchanged against it.
//
//   - server: dispatches requests to the shards of a server, each one a maple
//     database behind a local store or lock manager, with optional snapshots.
package rpc
