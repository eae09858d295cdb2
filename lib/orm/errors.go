package orm

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

var (
	// ErrConfiguration is returned when a model cannot be registered
	ErrConfiguration = errors.New("orm: configuration error")
	// ErrCoercion is returned when a value cannot be converted to or from its stored form
	ErrCoercion = errors.New("orm: coercion error")
	// ErrInvalidKey is returned for empty or unsupported primary keys
	ErrInvalidKey = errors.New("orm: invalid key")
	// ErrInvalidArgument is returned for malformed call arguments, before the store is touched
	ErrInvalidArgument = errors.New("orm: invalid argument")
	// ErrLockTimeout is returned when a record lock could not be taken in time
	ErrLockTimeout = errors.New("orm: lock timeout")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// CoercionError describes a single field whose value could not be converted
type CoercionError struct {
	Field string // stored field name, empty if the whole record is unreadable
	Value string // stored (or offending) value
	Err   error
}

func (e *CoercionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("orm: cannot decode record: %v", e.Err)
	}
	return fmt.Sprintf("orm: cannot coerce field %q (value %q): %v", e.Field, e.Value, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCoercion) match every CoercionError
func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }
