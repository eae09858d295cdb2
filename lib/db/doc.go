// Package db provides the engine-level interface the key-value stores of kvorm are built on.
// It defines a KVDB interface that allows consistent interaction with various engines while
// abstracting their implementation details.
//
// Key Components:
//
//   - KVDB Interface: The interface all engines must satisfy. It provides basic operations
//     (Set, Get, Has, Delete), lifetime operations (SetE, SetEIfUnset, Expire), collection-wide
//     operations (Keys, Flush), metadata retrieval (GetInfo) and persistence (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     advertise through SupportsFeature, so callers can discover supported operations at runtime.
//
//   - Database Information: DatabaseInfo reports the entry count, implementation type and
//     implementation-specific metadata.
//
// Note on Lifetimes:
//   - Lifetimes are wall-clock durations relative to the write that set them.
//   - An expired entry keeps its key (Has reports true) but Get reports nothing.
//   - A deleted entry is gone for every read.
//   - Get() must never return an entry that has logically expired and Has() must never report
//     an entry that has logically been deleted, even while the entry is still waiting for the
//     background garbage collection.
//
// Related Packages:
//
// The engines/maple package provides the sharded in-memory implementation used by the local store.
// The util package provides the keyed heap used for garbage collection and the shard hash.
// The testing package provides RunKVDBTests, a conformance suite for KVDB implementations.
package db
