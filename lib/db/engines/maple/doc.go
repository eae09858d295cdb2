// Package maple implements an in-memory key-value database (KVDB) with
// wall-clock lifetimes. It is the default backend of the local store.
//
// Key Components:
//
//   - mapleImpl: implements db.KVDB. Keys are spread over a fixed number of
//     shards using a seeded FNV-1a hash (see util.ShardIndex).
//
//   - Shard: holds an xsync.MapOf with the entries and two deadline heaps
//     (expiration and deletion) guarded by a mutex.
//
//   - Entry: a value plus its absolute expiration and deletion deadlines in
//     unix nanoseconds. Zero means never.
//
// Lifetimes:
//
//   - An expired entry returns false for Get() but true for Has().
//   - A deleted entry returns false for both and is left out by Keys().
//   - Reads check the deadlines themselves, so results never depend on how far
//     the garbage collector has progressed.
//
// Garbage Collection:
//
// A single goroutine wakes up every GCInterval, pops the due keys from each
// shard's heaps and frees their values or removes them. Because an entry can be
// rewritten after it was scheduled, the collector re-checks the deadlines of
// the stored entry before touching it.
//
// Persistence Format:
//
//  1. Magic number "MAPLEDB\x00"
//  2. Version number (currently 4)
//  3. Number of entries
//  4. For each entry: key length, key, expiration deadline, deletion deadline,
//     value length, value bytes
//
// Snapshots are fuzzy: Save does not block writers.
package maple
