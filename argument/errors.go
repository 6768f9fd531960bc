package argument

import (
	"errors"
	"fmt"
)

// Extraction error kinds. Use errors.Is to classify an *InvalidArgumentError.
var (
	ErrNotALiteral  = errors.New("argument is not a VARCHAR literal")
	ErrNullKey      = errors.New("null MAP key")
	ErrNullValue    = errors.New("null MAP value")
	ErrDuplicateKey = errors.New("duplicate MAP entry")

	// ErrArity indicates that the call does not supply one node per declared parameter.
	ErrArity = errors.New("argument count mismatch")
)

// InvalidArgumentError reports a table-function argument that cannot be extracted.
type InvalidArgumentError struct {
	// Kind is one of ErrNotALiteral, ErrNullKey, ErrNullValue, ErrDuplicateKey.
	Kind error

	// Function is the name of the called function.
	Function string

	// Ordinal is the 1-based position of the offending argument.
	Ordinal int

	// Param is the parameter name.
	Param string

	// Actual describes the offending node (literal type or node kind).
	Actual string
}

func newInvalidArgument(kind error, function string, param Parameter, actual string) *InvalidArgumentError {
	return &InvalidArgumentError{
		Kind:     kind,
		Function: function,
		Ordinal:  param.Ordinal + 1,
		Param:    param.Name,
		Actual:   actual,
	}
}

func (e *InvalidArgumentError) Error() string {
	switch e.Kind {
	case ErrNullKey:
		return fmt.Sprintf("Null MAP key in a call to function %s. Argument #%d (%s)", e.Function, e.Ordinal, e.Param)
	case ErrNullValue:
		return fmt.Sprintf("Null MAP value in a call to function %s. Argument #%d (%s)", e.Function, e.Ordinal, e.Param)
	case ErrDuplicateKey:
		return fmt.Sprintf("Duplicate MAP entry in a call to function %s. Argument #%d (%s)", e.Function, e.Ordinal, e.Param)
	default:
		return fmt.Sprintf("All arguments of call to function %s should be VARCHAR literals. Actual argument #%d (%s) is: %s",
			e.Function, e.Ordinal, e.Param, e.Actual)
	}
}

// Unwrap returns the error kind.
func (e *InvalidArgumentError) Unwrap() error {
	return e.Kind
}
