// Package cmd implements the kvorm command-line interface. It provides a
// hierarchical command structure for running the server and talking to it.
//
// The package is organized into several subpackages:
//
//   - serve: starts the rpc server with local store and lock manager shards
//   - kv: raw key-value operations (get, set, scan, etc.)
//   - lock: lock operations (acquire, release)
//   - demo: a library catalog stored through the object mapper
//   - util: shared flag, config and client helpers (internal use)
//
// Every flag can also be set as an environment variable KVORM_<FLAG>
// (e.g. KVORM_LOG_LEVEL=debug), .env and .env.local are read on start.
// See kvorm -help for a list of all commands.
package cmd
