package mapping

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("invalid field map configuration")

// ConfigurationError reports a bad or missing persistence declaration on a type.
// It is raised while generating a field map and is never retried.
type ConfigurationError struct {
	Type   reflect.Type
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Type == nil {
		return "mapping: " + e.Reason
	}
	return fmt.Sprintf("mapping %s: %s", e.Type, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configError(t reflect.Type, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Type: t, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns a boolean indicating whether the error is a configuration error.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// PropertyReadError is returned when a raw column value cannot be converted into
// the type of the property it is mapped to.
type PropertyReadError struct {
	Property string
	Column   string
	Value    any
	Err      error
}

func (e *PropertyReadError) Error() string {
	return fmt.Sprintf("mapping: reading column %q into property %s (value %v of type %T): %v",
		e.Column, e.Property, e.Value, e.Value, e.Err)
}

func (e *PropertyReadError) Unwrap() error {
	return e.Err
}

// IsPropertyReadError returns a boolean indicating whether the error is a property read error.
func IsPropertyReadError(err error) bool {
	if err == nil {
		return false
	}
	var e *PropertyReadError
	return errors.As(err, &e)
}
