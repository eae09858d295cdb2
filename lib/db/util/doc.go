// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - functions: seed generation and the FNV-1a string hash used for shard selection
//   - mapheap: a min-heap of deadlines that also supports key-based access and removal
//
// MapHeap is not thread-safe; engines guard it with their own shard lock.
package util
