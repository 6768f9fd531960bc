package file

import (
	"errors"
	"fmt"
)

// Schema discovery failure kinds.
var (
	// ErrEmptySource is returned when schema discovery finds no record to sample.
	ErrEmptySource = errors.New("empty source")

	// ErrIOFailure is returned when the sample scan fails.
	ErrIOFailure = errors.New("I/O failure")

	// ErrUnsupportedAttribute is returned when a sampled attribute has no column type.
	ErrUnsupportedAttribute = errors.New("unsupported attribute")

	// ErrInvalidField is returned for malformed user-declared fields.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidOption is returned for malformed options.
	ErrInvalidOption = errors.New("invalid option")
)

// SchemaDiscoveryError reports a failed schema discovery.
// errors.Is matches both the Kind and the underlying cause.
type SchemaDiscoveryError struct {
	Kind      error
	Format    string
	Path      string
	Attribute string
	Err       error
}

func (e *SchemaDiscoveryError) Error() string {
	msg := fmt.Sprintf("schema discovery failed for %s files in %q: %v", e.Format, e.Path, e.Kind)
	if e.Attribute != "" {
		msg += fmt.Sprintf(" (attribute %q)", e.Attribute)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaDiscoveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
