package orm

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Separator joins model name and primary key in a storage key
const Separator = "_%&_"

// lockPrefix starts the keys of record locks. Model names never contain '%',
// so lock keys never show up in a collection scan.
const lockPrefix = "%lock%"

// EncodeKey returns the storage key of the record of model with the given primary key.
// The primary key may be a string, an integer or an encoding.TextMarshaler.
func EncodeKey(model string, primaryKey any) (string, error) {
	if err := validateModelName(model); err != nil {
		return "", err
	}
	pk, err := keyString(primaryKey)
	if err != nil {
		return "", err
	}
	return model + Separator + pk, nil
}

// keyPrefix is the prefix shared by all keys of model
func keyPrefix(model string) string {
	return model + Separator
}

// validateModelName rejects names that would make keys ambiguous
func validateModelName(name string) error {
	if name == "" {
		return configErrorf("empty model name")
	}
	if strings.ContainsRune(name, '%') {
		return configErrorf("model name %q must not contain '%%'", name)
	}
	return nil
}

// keyString converts a primary key value to its canonical string
func keyString(pk any) (string, error) {
	var s string
	switch v := pk.(type) {
	case nil:
		return "", fmt.Errorf("%w: primary key is nil", ErrInvalidKey)
	case string:
		s = v
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		s = string(text)
	default:
		rv := reflect.ValueOf(pk)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			s = strconv.FormatInt(rv.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			s = strconv.FormatUint(rv.Uint(), 10)
		case reflect.String:
			s = rv.String()
		case reflect.Pointer:
			if rv.IsNil() {
				return "", fmt.Errorf("%w: primary key is nil", ErrInvalidKey)
			}
			return keyString(rv.Elem().Interface())
		default:
			return "", fmt.Errorf("%w: unsupported primary key type %T", ErrInvalidKey, pk)
		}
	}
	if s == "" {
		return "", fmt.Errorf("%w: primary key is empty", ErrInvalidKey)
	}
	return s, nil
}
