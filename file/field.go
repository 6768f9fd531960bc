package file

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// MappingField is a user-declared or inferred column.
type MappingField struct {
	// Name is the SQL-facing column name.
	Name string

	// ExternalName is the attribute name in the source. Empty means Name.
	ExternalName string

	Type arrow.DataType
}

// TableField is a resolved column of a file table.
type TableField struct {
	Name         string
	Type         arrow.DataType
	ExternalName string
}

// ToTableFields converts resolved fields, defaulting external names to field names.
func ToTableFields(fields []MappingField) []TableField {
	out := make([]TableField, len(fields))
	for i, f := range fields {
		external := f.ExternalName
		if external == "" {
			external = f.Name
		}
		out[i] = TableField{Name: f.Name, Type: f.Type, ExternalName: external}
	}
	return out
}

// validateFields checks user-declared fields. External names must address top-level
// attributes of a record, so nested paths are rejected.
func validateFields(fields []MappingField) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field #%d has no name", ErrInvalidField, i+1)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: column %q specified more than once", ErrInvalidField, f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type == nil {
			return fmt.Errorf("%w: column %q has no type", ErrInvalidField, f.Name)
		}
		if strings.Contains(f.ExternalName, ".") {
			return fmt.Errorf("%w: invalid external name %q, nested fields are not supported", ErrInvalidField, f.ExternalName)
		}
	}
	return nil
}

// inferType maps a runtime value to a column type. Nil widens to VARCHAR.
// Composite values and decimals without a declared precision have no column type.
func inferType(v any) (arrow.DataType, bool) {
	switch v.(type) {
	case nil, string:
		return arrow.BinaryTypes.String, true
	case bool:
		return arrow.FixedWidthTypes.Boolean, true
	case int8:
		return arrow.PrimitiveTypes.Int8, true
	case int16:
		return arrow.PrimitiveTypes.Int16, true
	case int32:
		return arrow.PrimitiveTypes.Int32, true
	case int, int64:
		return arrow.PrimitiveTypes.Int64, true
	case uint8:
		return arrow.PrimitiveTypes.Uint8, true
	case uint16:
		return arrow.PrimitiveTypes.Uint16, true
	case uint32:
		return arrow.PrimitiveTypes.Uint32, true
	case uint64:
		return arrow.PrimitiveTypes.Uint64, true
	case float32:
		return arrow.PrimitiveTypes.Float32, true
	case float64:
		return arrow.PrimitiveTypes.Float64, true
	case []byte:
		return arrow.BinaryTypes.Binary, true
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us, true
	default:
		return nil, false
	}
}
