package dialect

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFeature is matched by every UnsupportedFeatureError.
var ErrUnsupportedFeature = errors.New("feature not supported by dialect")

// UnsupportedFeatureError is returned when a dialect lacks a requested capability.
type UnsupportedFeatureError struct {
	Dialect string
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("dialect %s does not support %s", e.Dialect, e.Feature)
}

func (e *UnsupportedFeatureError) Is(target error) bool {
	return target == ErrUnsupportedFeature
}

// IsUnsupportedFeature returns a boolean indicating whether the error reports a missing dialect capability.
func IsUnsupportedFeature(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedFeatureError
	return errors.As(err, &e)
}
