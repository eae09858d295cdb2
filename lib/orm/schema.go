package orm

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Field Kinds
// --------------------------------------------------------------------------

// Kind is the storage class of a model field
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindUint
	KindFloat
	KindBool
	KindDatetime
	// KindDate is a time.Time tagged with the date option. Only the calendar day
	// in the value's own location is stored; it reads back as midnight UTC.
	KindDate
	KindText
	KindList
	KindTuple
	KindDict
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindUint:
		return "Uint"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindDatetime:
		return "Datetime"
	case KindDate:
		return "Date"
	case KindText:
		return "Text"
	case KindList:
		return "List"
	case KindTuple:
		return "Tuple"
	case KindDict:
		return "Dict"
	case KindNested:
		return "Nested"
	default:
		return "Unknown"
	}
}

// isKeyKind reports whether a primary key may have kind k
func (k Kind) isKeyKind() bool {
	switch k {
	case KindString, KindInt, KindUint, KindText:
		return true
	}
	return false
}

// --------------------------------------------------------------------------
// Field Descriptor
// --------------------------------------------------------------------------

// Field describes how one struct field of a model is stored
type Field struct {
	Name     string       // stored field name
	GoName   string       // struct field name
	Index    []int        // struct field index path (embedded structs are flattened)
	Type     reflect.Type // field type with the optional pointer removed
	Kind     Kind
	Optional bool   // pointer field, nil is not stored
	Elem     *Field // element descriptor of List, Tuple and Dict fields
	Nested   string // collection name of a Nested field

	nested *collectionInfo
}

var (
	timeType            = reflect.TypeOf(time.Time{})
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// layoutCache holds the field layout of every model type seen so far.
// Layouts are pure functions of the type, concurrent computations store equal values.
var layoutCache = xsync.NewMapOf[reflect.Type, []*Field]()

// fieldLayout returns the stored fields of struct type t. Struct valued fields
// are reported as KindNested; the registry decides whether they are models.
func fieldLayout(t reflect.Type) ([]*Field, error) {
	if fields, ok := layoutCache.Load(t); ok {
		return fields, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, configErrorf("model %s is not a struct", t)
	}

	var fields []*Field
	if err := collectFields(t, nil, &fields); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(fields))
	for _, f := range fields {
		if other, ok := seen[f.Name]; ok {
			return nil, configErrorf("model %s: fields %s and %s are both stored as %q", t, other, f.GoName, f.Name)
		}
		seen[f.Name] = f.GoName
	}

	layoutCache.Store(t, fields)
	return fields, nil
}

func collectFields(t reflect.Type, index []int, out *[]*Field) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opts, skip := parseTag(sf)
		if skip {
			continue
		}
		path := append(append([]int(nil), index...), i)

		// embedded structs contribute their fields
		if sf.Anonymous && sf.Tag.Get("kv") == "" && sf.Tag.Get("json") == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				return configErrorf("embedded pointer %s in %s is not supported", sf.Name, t)
			}
			if ft.Kind() == reflect.Struct && ft != timeType && !isText(ft) {
				if err := collectFields(ft, path, out); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		f, err := describe(sf.Type, opts)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
		}
		f.Name = name
		f.GoName = sf.Name
		f.Index = path
		*out = append(*out, f)
	}
	return nil
}

// parseTag resolves the stored name of a struct field
func parseTag(sf reflect.StructField) (name string, opts []string, skip bool) {
	tag, ok := sf.Tag.Lookup("kv")
	if !ok {
		if js, ok := sf.Tag.Lookup("json"); ok {
			tag, _, _ = strings.Cut(js, ",")
		}
	}
	if tag == "-" {
		return "", nil, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = strings.ToLower(sf.Name)
	}
	return name, parts[1:], false
}

// describe builds the descriptor of a field of type t
func describe(t reflect.Type, opts []string) (*Field, error) {
	f := &Field{}
	if t.Kind() == reflect.Pointer {
		f.Optional = true
		t = t.Elem()
		if t.Kind() == reflect.Pointer {
			return nil, configErrorf("pointer to pointer type %s", t)
		}
	}
	f.Type = t

	isDate := false
	for _, o := range opts {
		switch o {
		case "date":
			isDate = true
		case "omitempty", "":
		default:
			return nil, configErrorf("unknown tag option %q", o)
		}
	}

	switch {
	case t == timeType:
		f.Kind = KindDatetime
		if isDate {
			f.Kind = KindDate
		}
		return f, nil
	case isDate:
		return nil, configErrorf("option date on non time type %s", t)
	case isText(t):
		f.Kind = KindText
		return f, nil
	}

	switch t.Kind() {
	case reflect.String:
		f.Kind = KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.Kind = KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f.Kind = KindUint
	case reflect.Float32, reflect.Float64:
		f.Kind = KindFloat
	case reflect.Bool:
		f.Kind = KindBool
	case reflect.Struct:
		f.Kind = KindNested
	case reflect.Slice, reflect.Array, reflect.Map:
		switch t.Kind() {
		case reflect.Slice:
			f.Kind = KindList
		case reflect.Array:
			f.Kind = KindTuple
		default:
			f.Kind = KindDict
			switch t.Key().Kind() {
			case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			default:
				if !isText(t.Key()) {
					return nil, configErrorf("unsupported map key type %s", t.Key())
				}
			}
		}
		elem, err := describe(t.Elem(), nil)
		if err != nil {
			return nil, err
		}
		f.Elem = elem
	default:
		return nil, configErrorf("unsupported type %s", t)
	}
	return f, nil
}

func isText(t reflect.Type) bool {
	return t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// containsNested reports the first struct type inside the element descriptors of f
// for which isModel returns true
func (f *Field) containsNested(isModel func(reflect.Type) bool) (reflect.Type, bool) {
	for e := f.Elem; e != nil; e = e.Elem {
		if e.Kind == KindNested && isModel(e.Type) {
			return e.Type, true
		}
	}
	return nil, false
}
