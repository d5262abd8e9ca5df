package sky

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors match these through errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)

// InvalidArgumentError reports an out-of-domain input. Key names the target
// or observatory that carried the bad value, when there is one.
type InvalidArgumentError struct {
	Key    string
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	msg := fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
	if e.Field == "name" {
		// Names are strings; the numeric value carries nothing.
		msg = fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	if e.Key == "" {
		return msg
	}
	return e.Key + ": " + msg
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NotFoundError reports a lookup miss, e.g. an unknown observatory name.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidArgument builds an InvalidArgumentError.
func InvalidArgument(key, field string, value float64, reason string) error {
	return invalid(key, field, value, reason)
}

func invalid(key, field string, value float64, reason string) error {
	return &InvalidArgumentError{Key: key, Field: field, Value: value, Reason: reason}
}
