package orm

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const dateLayout = "2006-01-02"

var errMissingValue = errors.New("missing value")

// hashEncMode writes the flat record hash with sorted keys, equal records encode to equal bytes
var hashEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// --------------------------------------------------------------------------
// Record Hash
// --------------------------------------------------------------------------

func encodeHash(hash map[string]string) ([]byte, error) {
	return hashEncMode.Marshal(hash)
}

func decodeHash(data []byte) (map[string]string, error) {
	var hash map[string]string
	if err := cbor.Unmarshal(data, &hash); err != nil {
		return nil, &CoercionError{Value: fmt.Sprintf("%x", data), Err: err}
	}
	if hash == nil {
		hash = map[string]string{}
	}
	return hash, nil
}

// --------------------------------------------------------------------------
// Scalar Values
// --------------------------------------------------------------------------

// encodeValue converts v (of type f.Type) to its stored string.
// Nested fields are not handled here.
func encodeValue(f *Field, v reflect.Value) (string, error) {
	switch f.Kind {
	case KindString:
		return v.String(), nil
	case KindInt:
		return strconv.FormatInt(v.Int(), 10), nil
	case KindUint:
		return strconv.FormatUint(v.Uint(), 10), nil
	case KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, f.Type.Bits()), nil
	case KindBool:
		return strconv.FormatBool(v.Bool()), nil
	case KindDatetime:
		return v.Interface().(time.Time).UTC().Format(time.RFC3339Nano), nil
	case KindDate:
		return v.Interface().(time.Time).Format(dateLayout), nil
	case KindText:
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", &CoercionError{Field: f.Name, Value: fmt.Sprint(v.Interface()), Err: err}
		}
		return string(text), nil
	case KindList, KindTuple, KindDict:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return "", &CoercionError{Field: f.Name, Value: fmt.Sprint(v.Interface()), Err: err}
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("orm: field %q of kind %s has no scalar encoding", f.Name, f.Kind)
	}
}

// decodeValue parses a stored string into a new value of type f.Type
func decodeValue(f *Field, s string) (reflect.Value, error) {
	v := reflect.New(f.Type).Elem()
	var err error

	switch f.Kind {
	case KindString:
		v.SetString(s)
	case KindInt:
		var n int64
		if n, err = strconv.ParseInt(s, 10, f.Type.Bits()); err == nil {
			v.SetInt(n)
		}
	case KindUint:
		var n uint64
		if n, err = strconv.ParseUint(s, 10, f.Type.Bits()); err == nil {
			v.SetUint(n)
		}
	case KindFloat:
		var n float64
		if n, err = strconv.ParseFloat(s, f.Type.Bits()); err == nil {
			v.SetFloat(n)
		}
	case KindBool:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			v.SetBool(b)
		}
	case KindDatetime:
		var t time.Time
		if t, err = time.Parse(time.RFC3339Nano, s); err == nil {
			v.Set(reflect.ValueOf(t.UTC()))
		}
	case KindDate:
		var t time.Time
		if t, err = time.Parse(dateLayout, s); err == nil {
			v.Set(reflect.ValueOf(t))
		}
	case KindText:
		err = v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
	case KindList, KindTuple, KindDict:
		err = json.Unmarshal([]byte(s), v.Addr().Interface())
	default:
		err = fmt.Errorf("kind %s has no scalar encoding", f.Kind)
	}

	if err != nil {
		return reflect.Value{}, &CoercionError{Field: f.Name, Value: s, Err: err}
	}
	return v, nil
}

// setField stores value (of type f.Type) into the struct field of f
func setField(record reflect.Value, f *Field, value reflect.Value) {
	target := record.FieldByIndex(f.Index)
	if f.Optional {
		p := reflect.New(f.Type)
		p.Elem().Set(value)
		target.Set(p)
		return
	}
	target.Set(value)
}

// fieldValue returns the value of the struct field of f,
// ok is false for nil optional fields
func fieldValue(record reflect.Value, f *Field) (v reflect.Value, ok bool) {
	v = record.FieldByIndex(f.Index)
	if f.Optional {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, true
}

// --------------------------------------------------------------------------
// Argument Conversion
// --------------------------------------------------------------------------

// convertArg converts a caller supplied value to a value of type f.Type.
// Strings are parsed with the stored encoding, numbers convert between numeric kinds.
// A nil argument yields the zero reflect.Value.
func convertArg(f *Field, arg any) (reflect.Value, error) {
	if arg == nil {
		return reflect.Value{}, nil
	}
	v := reflect.ValueOf(arg)
	if v.Kind() == reflect.Pointer && v.Type().Elem() == f.Type {
		if v.IsNil() {
			return reflect.Value{}, nil
		}
		v = v.Elem()
	}

	switch {
	case v.Type().AssignableTo(f.Type):
		out := reflect.New(f.Type).Elem()
		out.Set(v)
		return out, nil
	case isNumeric(v.Kind()) && isNumeric(f.Type.Kind()):
		if err := fitsNumber(v, f.Type); err != nil {
			return reflect.Value{}, invalidArgumentf("field %q expects %s, got %v: %v", f.Name, f.Type, arg, err)
		}
		return v.Convert(f.Type), nil
	case v.Kind() == reflect.String && f.Kind != KindNested:
		return decodeValue(f, v.String())
	default:
		return reflect.Value{}, invalidArgumentf("field %q expects %s, got %T", f.Name, f.Type, arg)
	}
}

// fitsNumber reports an error unless v converts to t without changing its value
func fitsNumber(v reflect.Value, t reflect.Type) error {
	target := reflect.Zero(t)
	switch {
	case v.CanInt():
		n := v.Int()
		switch {
		case target.CanUint():
			if n < 0 {
				return errors.New("negative value")
			}
			if target.OverflowUint(uint64(n)) {
				return errors.New("out of range")
			}
		case target.CanInt():
			if target.OverflowInt(n) {
				return errors.New("out of range")
			}
		}
	case v.CanUint():
		u := v.Uint()
		switch {
		case target.CanUint():
			if target.OverflowUint(u) {
				return errors.New("out of range")
			}
		case target.CanInt():
			if u > math.MaxInt64 || target.OverflowInt(int64(u)) {
				return errors.New("out of range")
			}
		}
	case v.CanFloat():
		x := v.Float()
		switch {
		case target.CanFloat():
			if !math.IsInf(x, 0) && target.OverflowFloat(x) {
				return errors.New("out of range")
			}
		case math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x):
			return errors.New("not an integer")
		case target.CanUint():
			if x < 0 {
				return errors.New("negative value")
			}
			if x >= 1<<64 || target.OverflowUint(uint64(x)) {
				return errors.New("out of range")
			}
		case target.CanInt():
			if x < -(1<<63) || x >= 1<<63 || target.OverflowInt(int64(x)) {
				return errors.New("out of range")
			}
		}
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}
