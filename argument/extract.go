package argument

import (
	"fmt"
	"sort"
)

// Parameter is a formal parameter of a table function.
type Parameter struct {
	// Ordinal is the 0-based position of the parameter.
	Ordinal int

	// Name is the parameter name used for named arguments (path => '...').
	Name string

	// Optional reports whether the argument may be omitted (DEFAULT).
	Optional bool
}

// Value is an extracted argument: NULL, a string or a string map.
// The zero Value is NULL. Values are immutable once produced.
type Value struct {
	str   *string
	entry map[string]string
}

// NullValue returns the NULL argument value.
func NullValue() Value {
	return Value{}
}

// StringValue returns a string argument value.
func StringValue(s string) Value {
	return Value{str: &s}
}

// MapValue returns a map argument value holding a copy of m.
func MapValue(m map[string]string) Value {
	entries := make(map[string]string, len(m))
	for k, v := range m {
		entries[k] = v
	}
	return Value{entry: entries}
}

// IsNull reports whether the value is NULL (DEFAULT or an explicit NULL).
func (v Value) IsNull() bool {
	return v.str == nil && v.entry == nil
}

// String returns the string payload.
func (v Value) String() (string, bool) {
	if v.str == nil {
		return "", false
	}
	return *v.str, true
}

// Map returns a copy of the map payload.
func (v Value) Map() (map[string]string, bool) {
	if v.entry == nil {
		return nil, false
	}
	m := make(map[string]string, len(v.entry))
	for k, val := range v.entry {
		m[k] = val
	}
	return m, true
}

// Native returns the value as nil, string or map[string]string.
func (v Value) Native() any {
	switch {
	case v.str != nil:
		return *v.str
	case v.entry != nil:
		m, _ := v.Map()
		return m
	default:
		return nil
	}
}

// Equal reports whether two values hold the same payload.
func (v Value) Equal(other Value) bool {
	switch {
	case v.IsNull() || other.IsNull():
		return v.IsNull() && other.IsNull()
	case v.str != nil || other.str != nil:
		return v.str != nil && other.str != nil && *v.str == *other.str
	}
	if len(v.entry) != len(other.entry) {
		return false
	}
	for k, val := range v.entry {
		if ov, ok := other.entry[k]; !ok || ov != val {
			return false
		}
	}
	return true
}

// GoString renders the value for test failure output.
func (v Value) GoString() string {
	switch {
	case v.str != nil:
		return fmt.Sprintf("%q", *v.str)
	case v.entry != nil:
		keys := make([]string, 0, len(v.entry))
		for k := range v.entry {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "MAP["
		for i, k := range keys {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%q, %q", k, v.entry[k])
		}
		return s + "]"
	default:
		return "NULL"
	}
}

// Extract converts call-site argument nodes into native values, one per parameter.
//
// params and nodes are positional and must have the same length. Extraction never
// performs I/O and returns the same result for the same input.
func Extract(function string, params []Parameter, nodes []Node) ([]Value, error) {
	if len(params) != len(nodes) {
		return nil, fmt.Errorf("%w: function %s declares %d parameters, got %d arguments",
			ErrArity, function, len(params), len(nodes))
	}

	values := make([]Value, len(params))
	for i, param := range params {
		value, err := extractValue(function, param, nodes[i])
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func extractValue(function string, param Parameter, node Node) (Value, error) {
	if node.isNull() {
		return NullValue(), nil
	}

	if text, ok := node.charText(); ok {
		return StringValue(text), nil
	}

	if node.Kind == KindMapConstructor {
		return extractMap(function, param, node)
	}

	return Value{}, newInvalidArgument(ErrNotALiteral, function, param, node.describe())
}

func extractMap(function string, param Parameter, node Node) (Value, error) {
	operands := node.Operands
	if len(operands)%2 != 0 {
		return Value{}, newInvalidArgument(ErrNotALiteral, function, param, node.describe())
	}

	entries := make(map[string]string, len(operands)/2)
	for i := 0; i < len(operands); i += 2 {
		key, err := extractValue(function, param, operands[i])
		if err != nil {
			return Value{}, err
		}
		keyStr, ok := key.String()
		if !ok {
			if key.IsNull() {
				return Value{}, newInvalidArgument(ErrNullKey, function, param, "")
			}
			return Value{}, newInvalidArgument(ErrNotALiteral, function, param, operands[i].describe())
		}

		value, err := extractValue(function, param, operands[i+1])
		if err != nil {
			return Value{}, err
		}
		valueStr, ok := value.String()
		if !ok {
			if value.IsNull() {
				return Value{}, newInvalidArgument(ErrNullValue, function, param, "")
			}
			return Value{}, newInvalidArgument(ErrNotALiteral, function, param, operands[i+1].describe())
		}

		if _, exists := entries[keyStr]; exists {
			return Value{}, newInvalidArgument(ErrDuplicateKey, function, param, "")
		}
		entries[keyStr] = valueStr
	}
	return Value{entry: entries}, nil
}
