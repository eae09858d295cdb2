package orm

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/ValentinKolb/kvorm/lib/store"
)

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// writeBatch collects the entries of one batched write.
// A key written twice keeps its last value at its first position.
type writeBatch struct {
	entries []store.KeyValue
	index   map[string]int
}

func newWriteBatch() *writeBatch {
	return &writeBatch{index: make(map[string]int)}
}

func (b *writeBatch) put(key string, value []byte) {
	if i, ok := b.index[key]; ok {
		b.entries[i].Value = value
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, store.KeyValue{Key: key, Value: value})
}

func (b *writeBatch) merge(other *writeBatch) {
	for _, e := range other.entries {
		b.put(e.Key, e.Value)
	}
}

func (b *writeBatch) len() int { return len(b.entries) }

// primaryKey returns the canonical primary key string of record
func (info *collectionInfo) primaryKey(record reflect.Value) (string, error) {
	v := record.FieldByIndex(info.pk.Index)
	s, err := encodeValue(info.pk, v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if s == "" {
		return "", fmt.Errorf("%w: primary key %q of %q is empty", ErrInvalidKey, info.pk.Name, info.name)
	}
	return s, nil
}

// keyOf builds the storage key for a caller supplied id
func (info *collectionInfo) keyOf(id any) (string, error) {
	if id == nil {
		return "", fmt.Errorf("%w: primary key is nil", ErrInvalidKey)
	}
	v, err := convertArg(info.pk, id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if !v.IsValid() {
		return "", fmt.Errorf("%w: primary key is nil", ErrInvalidKey)
	}
	pk, err := encodeValue(info.pk, v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return EncodeKey(info.name, pk)
}

// flatten serializes record and all records nested in it into b.
// Nested records are put before the records referencing them.
func (info *collectionInfo) flatten(record reflect.Value, b *writeBatch) (string, error) {
	pk, err := info.primaryKey(record)
	if err != nil {
		return "", err
	}
	key := info.name + Separator + pk

	hash := make(map[string]string, len(info.fields))
	for _, f := range info.fields {
		v, ok := fieldValue(record, f)
		if !ok {
			continue
		}
		if hash[f.Name], err = flattenField(f, v, b); err != nil {
			return "", err
		}
	}

	data, err := encodeHash(hash)
	if err != nil {
		return "", &CoercionError{Value: key, Err: err}
	}
	b.put(key, data)
	return key, nil
}

// flattenField returns the stored string of v, writing nested records to b
func flattenField(f *Field, v reflect.Value, b *writeBatch) (string, error) {
	if f.Kind != KindNested {
		return encodeValue(f, v)
	}
	return f.nested.flatten(v, b)
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// loaded is the outcome of reading one key
type loaded struct {
	record reflect.Value // addressable struct value, invalid if absent or failed
	err    error
}

// pendingRef is a nested field waiting for its referenced record
type pendingRef struct {
	record reflect.Value
	field  *Field
	key    string
}

// load reads and decodes the records stored under keys, resolving nested
// records with one MGet per nested model and level.
// Only transport errors are returned directly; decode failures are reported per key.
func (info *collectionInfo) load(h store.IStore, keys []string) ([]loaded, error) {
	out := make([]loaded, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, found, err := h.MGet(keys)
	if err != nil {
		return nil, err
	}

	// nested collection -> refs, in order of first appearance
	refs := make(map[*collectionInfo][]pendingRef)
	var order []*collectionInfo
	owner := make(map[*collectionInfo][]int) // index into out for every ref

	for i := range keys {
		if !found[i] {
			continue
		}
		record, nested, err := info.decode(values[i])
		if err != nil {
			out[i].err = fmt.Errorf("record %q: %w", keys[i], err)
			continue
		}
		out[i].record = record
		for _, ref := range nested {
			coll := ref.field.nested
			if _, ok := refs[coll]; !ok {
				order = append(order, coll)
			}
			refs[coll] = append(refs[coll], ref)
			owner[coll] = append(owner[coll], i)
		}
	}

	for _, coll := range order {
		pending := refs[coll]
		unique := make([]string, 0, len(pending))
		pos := make(map[string]int, len(pending))
		for _, ref := range pending {
			if _, ok := pos[ref.key]; !ok {
				pos[ref.key] = len(unique)
				unique = append(unique, ref.key)
			}
		}

		children, err := coll.load(h, unique)
		if err != nil {
			return nil, err
		}

		for j, ref := range pending {
			child := children[pos[ref.key]]
			i := owner[coll][j]
			switch {
			case child.err != nil:
				if out[i].err == nil {
					out[i].err = fmt.Errorf("record %q: %w", keys[i], child.err)
				}
			case !child.record.IsValid():
				Logger.Warningf("record %q: field %q references missing record %q", keys[i], ref.field.Name, ref.key)
			default:
				setField(ref.record, ref.field, child.record)
			}
		}
	}

	for i := range out {
		if out[i].err != nil {
			out[i].record = reflect.Value{}
		}
	}
	return out, nil
}

// decode converts a stored hash to a record, returning the nested
// fields that still need to be resolved
func (info *collectionInfo) decode(data []byte) (reflect.Value, []pendingRef, error) {
	hash, err := decodeHash(data)
	if err != nil {
		return reflect.Value{}, nil, err
	}

	record := reflect.New(info.typ).Elem()
	var refs []pendingRef
	for _, f := range info.fields {
		s, ok := hash[f.Name]
		if !ok {
			if f.Optional {
				continue
			}
			return reflect.Value{}, nil, &CoercionError{Field: f.Name, Err: errMissingValue}
		}
		if f.Kind == KindNested {
			refs = append(refs, pendingRef{record: record, field: f, key: s})
			continue
		}
		v, err := decodeValue(f, s)
		if err != nil {
			return reflect.Value{}, nil, err
		}
		setField(record, f, v)
	}
	return record, refs, nil
}

// decodePartial converts the requested fields of a stored hash.
// Nested fields yield the stored key of the referenced record.
func (info *collectionInfo) decodePartial(data []byte, fields []string) (map[string]any, error) {
	hash, err := decodeHash(data)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(fields))
	for _, name := range fields {
		f, ok := info.byName[name]
		if !ok {
			continue
		}
		s, ok := hash[name]
		switch {
		case !ok:
			if !f.Optional {
				return nil, &CoercionError{Field: f.Name, Err: errMissingValue}
			}
			out[name] = nil
		case f.Kind == KindNested:
			out[name] = s
		default:
			v, err := decodeValue(f, s)
			if err != nil {
				return nil, err
			}
			out[name] = v.Interface()
		}
	}
	return out, nil
}

// scanKeys returns all keys of the collection in sorted order
func (info *collectionInfo) scanKeys(h store.IStore) ([]string, error) {
	keys, err := h.Scan(keyPrefix(info.name))
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
