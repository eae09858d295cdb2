// Package orm maps Go structs to records in a key-value store.
//
// A record is stored under "<model>_%&_<primary key>" as the CBOR encoding of a
// flat map from field name to string. Every field kind but dates has a string
// encoding that round-trips exactly: numbers in base 10, times as RFC 3339 in
// UTC, encoding.TextMarshaler types through their text form and slices, arrays
// and maps as JSON. A date is a time field tagged
// `kv:",date"`: it stores the calendar day (2006-01-02) in the value's location
// and reads back as midnight UTC of that day, so 2020-01-02 00:00 +05:00 becomes
// 2020-01-02 00:00 UTC and Equal reports the two as different instants.
//
// A struct field whose type is another registered model is a nested record: it
// is written as its own record in the same batch and the parent stores only its
// key. Reads resolve nested keys again, one MGet per nested model and level.
// Deleting a record never deletes the records nested in it.
//
// Key Components:
//
//   - Store: the registry of models plus the Connection used by all of them.
//     Options set the default record lifetime, the longest nesting chain and
//     optional per-record update locks (see lib/lockmgr).
//
//   - Collection[T]: typed CRUD and partial selects for model T.
//
//   - Equal: field-wise record comparison treating times as instants.
//
// Usage Example:
//
//	local := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
//	s := orm.NewStore(store.Shared(local))
//	authors, _ := orm.RegisterCollection[Author](s, "name")
//	books, _ := orm.RegisterCollection[Book](s, "title", orm.WithTTL(time.Hour))
//
//	_ = books.InsertMany(catalog)
//	book, err := books.SelectOne("Oliver Twist")
package orm
