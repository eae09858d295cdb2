package orm

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/ValentinKolb/kvorm/lib/lockmgr"
	"github.com/ValentinKolb/kvorm/lib/store"
)

const lockRetryInterval = 5 * time.Millisecond

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type collectionOptions struct {
	name string
	ttl  time.Duration
}

// CollectionOption configures a Collection at registration
type CollectionOption func(*collectionOptions)

// WithName overrides the model name (default: lower-cased type name)
func WithName(name string) CollectionOption {
	return func(o *collectionOptions) { o.name = name }
}

// WithTTL sets the lifetime of records of the collection
func WithTTL(ttl time.Duration) CollectionOption {
	return func(o *collectionOptions) { o.ttl = ttl }
}

type writeOptions struct {
	ttl time.Duration
}

// WriteOption configures a single write
type WriteOption func(*writeOptions)

// TTL sets the lifetime of the records written by one call, nested records included
func TTL(ttl time.Duration) WriteOption {
	return func(o *writeOptions) { o.ttl = ttl }
}

func applyWriteOptions(opts []WriteOption) *writeOptions {
	o := &writeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

// Collection stores records of model T.
// It is safe for concurrent use.
type Collection[T any] struct {
	store *Store
	info  *collectionInfo
}

// RegisterCollection registers model T with s. Models referenced by fields of T
// must be registered before T.
func RegisterCollection[T any](s *Store, primaryKeyField string, opts ...CollectionOption) (*Collection[T], error) {
	o := &collectionOptions{}
	for _, opt := range opts {
		opt(o)
	}
	info, err := s.register(reflect.TypeOf((*T)(nil)).Elem(), primaryKeyField, o)
	if err != nil {
		return nil, err
	}
	return &Collection[T]{store: s, info: info}, nil
}

// Name returns the model name used in storage keys
func (c *Collection[T]) Name() string {
	return c.info.name
}

// Fields returns the descriptors of the stored fields of T
func (c *Collection[T]) Fields() []Field {
	out := make([]Field, len(c.info.fields))
	for i, f := range c.info.fields {
		out[i] = *f
	}
	return out
}

// Key returns the storage key of the record with primary key id
func (c *Collection[T]) Key(id any) (string, error) {
	return c.info.keyOf(id)
}

func (c *Collection[T]) keysOf(ids []any) ([]string, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		key, err := c.info.keyOf(id)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}

func (c *Collection[T]) write(h store.IStore, b *writeBatch, ttl time.Duration) error {
	if b.len() == 0 {
		return nil
	}
	Logger.Debugf("writing %d entries for %q (ttl %s)", b.len(), c.info.name, ttl)
	return h.MSetE(b.entries, 0, ttl)
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// InsertOne stores record and every record nested in it, replacing existing ones.
// It returns the primary key of record.
func (c *Collection[T]) InsertOne(record T, opts ...WriteOption) (id string, err error) {
	defer func(start time.Time) { observe(c.info.name, "insert_one", start, err) }(time.Now())

	ttl, err := c.store.ttlFor(c.info, applyWriteOptions(opts))
	if err != nil {
		return "", err
	}
	b := newWriteBatch()
	key, err := c.info.flatten(reflect.ValueOf(&record).Elem(), b)
	if err != nil {
		return "", err
	}
	if err = c.store.conn.With(func(h store.IStore) error {
		return c.write(h, b, ttl)
	}); err != nil {
		return "", err
	}
	return strings.TrimPrefix(key, keyPrefix(c.info.name)), nil
}

// InsertMany stores records in one batched write. If a record cannot be
// serialized, the records before it are still written and the error is returned.
func (c *Collection[T]) InsertMany(records []T, opts ...WriteOption) (err error) {
	defer func(start time.Time) { observe(c.info.name, "insert_many", start, err) }(time.Now())

	ttl, err := c.store.ttlFor(c.info, applyWriteOptions(opts))
	if err != nil {
		return err
	}
	pending := newWriteBatch()
	var failed error
	for i := range records {
		b := newWriteBatch()
		if _, err := c.info.flatten(reflect.ValueOf(&records[i]).Elem(), b); err != nil {
			failed = fmt.Errorf("record %d: %w", i, err)
			Logger.Warningf("insert into %q stopped at record %d: %v", c.info.name, i, err)
			break
		}
		pending.merge(b)
	}

	if err = c.store.conn.With(func(h store.IStore) error {
		return c.write(h, pending, ttl)
	}); err != nil {
		return err
	}
	return failed
}

// UpdateOne overwrites the given fields of the record with primary key id.
// Fields are addressed by their stored name, nil removes an optional field.
// Updating an absent record does nothing.
func (c *Collection[T]) UpdateOne(id any, fields map[string]any, opts ...WriteOption) (err error) {
	defer func(start time.Time) { observe(c.info.name, "update_one", start, err) }(time.Now())

	key, err := c.info.keyOf(id)
	if err != nil {
		return err
	}
	ttl, err := c.store.ttlFor(c.info, applyWriteOptions(opts))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	// nested records go to b, the record's own fields to updates (nil = remove)
	b := newWriteBatch()
	updates := make(map[string]*string, len(fields))
	for _, name := range names {
		f, ok := c.info.byName[name]
		if !ok {
			return invalidArgumentf("model %q has no field %q", c.info.name, name)
		}
		v, err := convertArg(f, fields[name])
		if err != nil {
			return err
		}
		if !v.IsValid() {
			if !f.Optional {
				return invalidArgumentf("field %q of %q cannot be nil", name, c.info.name)
			}
			updates[name] = nil
			continue
		}
		s, err := flattenField(f, v, b)
		if err != nil {
			return err
		}
		if f == c.info.pk && keyPrefix(c.info.name)+s != key {
			return invalidArgumentf("primary key %q of %q cannot change", name, c.info.name)
		}
		updates[name] = &s
	}

	return c.store.conn.With(func(h store.IStore) error {
		if c.store.lockTTL > 0 {
			unlock, err := c.lock(h, key)
			if err != nil {
				return err
			}
			defer unlock()
		}

		data, found, err := h.Get(key)
		if err != nil {
			return err
		}
		if !found {
			Logger.Debugf("update of absent record %q ignored", key)
			return nil
		}
		hash, err := decodeHash(data)
		if err != nil {
			return err
		}
		for name, s := range updates {
			if s == nil {
				delete(hash, name)
			} else {
				hash[name] = *s
			}
		}
		if data, err = encodeHash(hash); err != nil {
			return &CoercionError{Value: key, Err: err}
		}
		b.put(key, data)
		return c.write(h, b, ttl)
	})
}

// lock takes the update lock of key, waiting at most the lock lifetime
func (c *Collection[T]) lock(h store.IStore, key string) (unlock func(), err error) {
	lm := lockmgr.NewLockManager(h)
	lockKey := lockPrefix + key
	deadline := time.Now().Add(c.store.lockTTL)

	for {
		ok, owner, err := lm.AcquireLock(lockKey, c.store.lockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if _, err := lm.ReleaseLock(lockKey, owner); err != nil {
					Logger.Warningf("releasing lock of %q failed: %v", key, err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: record %q", ErrLockTimeout, key)
		}
		time.Sleep(lockRetryInterval)
	}
}

// DeleteOne removes the record with primary key id. Nested records are kept.
func (c *Collection[T]) DeleteOne(id any) (err error) {
	defer func(start time.Time) { observe(c.info.name, "delete_one", start, err) }(time.Now())
	return c.delete([]any{id})
}

// DeleteMany removes the records with the given primary keys. Absent records are ignored.
func (c *Collection[T]) DeleteMany(ids []any) (err error) {
	defer func(start time.Time) { observe(c.info.name, "delete_many", start, err) }(time.Now())
	return c.delete(ids)
}

func (c *Collection[T]) delete(ids []any) error {
	keys, err := c.keysOf(ids)
	if err != nil || len(keys) == 0 {
		return err
	}
	return c.store.conn.With(func(h store.IStore) error {
		return h.Delete(keys...)
	})
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// SelectOne returns the record with primary key id, or nil if there is none
func (c *Collection[T]) SelectOne(id any) (record *T, err error) {
	defer func(start time.Time) { observe(c.info.name, "select_one", start, err) }(time.Now())

	key, err := c.info.keyOf(id)
	if err != nil {
		return nil, err
	}
	var res []loaded
	if err = c.store.conn.With(func(h store.IStore) (err error) {
		res, err = c.info.load(h, []string{key})
		return err
	}); err != nil {
		return nil, err
	}
	if res[0].err != nil {
		return nil, res[0].err
	}
	if !res[0].record.IsValid() {
		return nil, nil
	}
	out := res[0].record.Interface().(T)
	return &out, nil
}

// SelectMany returns the records with the given primary keys in order, skipping absent ones.
// Records that cannot be decoded are skipped too; their errors are joined into err.
func (c *Collection[T]) SelectMany(ids []any) (records []T, err error) {
	defer func(start time.Time) { observe(c.info.name, "select_many", start, err) }(time.Now())

	keys, err := c.keysOf(ids)
	if err != nil {
		return nil, err
	}
	return c.selectKeys(func(store.IStore) ([]string, error) { return keys, nil })
}

// SelectAll returns every record of the collection ordered by storage key.
// Decode failures are handled as in SelectMany.
func (c *Collection[T]) SelectAll() (records []T, err error) {
	defer func(start time.Time) { observe(c.info.name, "select_all", start, err) }(time.Now())
	return c.selectKeys(c.info.scanKeys)
}

func (c *Collection[T]) selectKeys(keysFn func(store.IStore) ([]string, error)) ([]T, error) {
	var res []loaded
	err := c.store.conn.With(func(h store.IStore) error {
		keys, err := keysFn(h)
		if err != nil {
			return err
		}
		res, err = c.info.load(h, keys)
		return err
	})
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, len(res))
	var errs []error
	for _, r := range res {
		switch {
		case r.err != nil:
			Logger.Warningf("skipping record of %q: %v", c.info.name, r.err)
			errs = append(errs, r.err)
		case r.record.IsValid():
			records = append(records, r.record.Interface().(T))
		}
	}
	return records, errors.Join(errs...)
}

// SelectOnePartial returns the requested fields of the record with primary key id,
// or nil if there is none. Unknown field names are ignored, absent optional fields
// map to nil and nested fields to the storage key of the referenced record.
func (c *Collection[T]) SelectOnePartial(id any, fields []string) (values map[string]any, err error) {
	defer func(start time.Time) { observe(c.info.name, "select_one_partial", start, err) }(time.Now())

	key, err := c.info.keyOf(id)
	if err != nil {
		return nil, err
	}
	err = c.store.conn.With(func(h store.IStore) error {
		data, found, err := h.Get(key)
		if err != nil || !found {
			return err
		}
		if values, err = c.info.decodePartial(data, fields); err != nil {
			return fmt.Errorf("record %q: %w", key, err)
		}
		return nil
	})
	return values, err
}

// SelectPartial returns the requested fields of the records with the given
// primary keys, or of all records if no ids are given. Absent records are skipped,
// decode failures are handled as in SelectMany.
func (c *Collection[T]) SelectPartial(fields []string, ids ...any) (values []map[string]any, err error) {
	defer func(start time.Time) { observe(c.info.name, "select_partial", start, err) }(time.Now())

	var keys []string
	if len(ids) > 0 {
		if keys, err = c.keysOf(ids); err != nil {
			return nil, err
		}
	}

	var errs []error
	err = c.store.conn.With(func(h store.IStore) error {
		if len(ids) == 0 {
			var err error
			if keys, err = c.info.scanKeys(h); err != nil {
				return err
			}
		}
		if len(keys) == 0 {
			return nil
		}
		data, found, err := h.MGet(keys)
		if err != nil {
			return err
		}
		for i := range keys {
			if !found[i] {
				continue
			}
			v, err := c.info.decodePartial(data[i], fields)
			if err != nil {
				Logger.Warningf("skipping record %q: %v", keys[i], err)
				errs = append(errs, fmt.Errorf("record %q: %w", keys[i], err))
				continue
			}
			values = append(values, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, errors.Join(errs...)
}
