package catalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// ProjectSchema returns a schema containing only the named columns, in the
// order given. Unknown names are skipped. If columns is empty, or none of them
// match, the schema is returned unchanged. Schema metadata is preserved.
func ProjectSchema(schema *arrow.Schema, columns []string) *arrow.Schema {
	if len(columns) == 0 {
		return schema
	}

	fields := make([]arrow.Field, 0, len(columns))
	for _, col := range columns {
		if idx := schema.FieldIndices(col); len(idx) > 0 {
			fields = append(fields, schema.Field(idx[0]))
		}
	}
	if len(fields) == 0 {
		return schema
	}

	meta := schema.Metadata()
	return arrow.NewSchema(fields, &meta)
}

// ColumnIndices resolves column names to field positions in schema.
// Unlike ProjectSchema it fails on the first unknown name.
func ColumnIndices(schema *arrow.Schema, columns []string) ([]int, error) {
	indices := make([]int, len(columns))
	for i, col := range columns {
		idx := schema.FieldIndices(col)
		if len(idx) == 0 {
			return nil, fmt.Errorf("column %q: %w", col, ErrNotFound)
		}
		indices[i] = idx[0]
	}
	return indices, nil
}
