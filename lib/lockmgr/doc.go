// Package lockmgr implements advisory locks on top of any store.IStore.
//
// The lock manager keeps no state of its own, so any number of managers can be
// created on the same store and all of them see the same locks.
//
// Locks are taken with SetEIfUnset and confirmed by reading the key back: the
// stored value is a random owner ID (a uuid) and only the caller whose ID was
// stored holds the lock. A timeout becomes the deletion lifetime of the key, so
// a crashed holder never blocks others forever. ReleaseLock deletes the key only
// if the caller still owns it.
//
// The object mapper uses these locks to serialize concurrent updates of the same
// record. They are also exposed remotely through the rpc server.
//
// Usage Example:
//
//	lm := lockmgr.NewLockManager(s)
//	acquired, ownerID, err := lm.AcquireLock("%lock%book_%&_1", 30*time.Second)
//	if err == nil && acquired {
//	    defer lm.ReleaseLock("%lock%book_%&_1", ownerID)
//	    // ...
//	}
package lockmgr
