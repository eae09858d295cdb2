// Package testing provides a conformance test suite for database
// implementations that satisfy the db.KVDB interface.
//
// Lifetimes are tested against a manually advanced Clock, so the suite never
// sleeps. Implementations must read the time only from the function handed to
// the factory.
//
// Example usage:
//
//	dbtesting.RunKVDBTests(t, "MyDatabase", func(clock func() time.Time) db.KVDB {
//		return NewMyDatabase(clock)
//	})
package testing
