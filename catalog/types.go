package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ScanOptions controls a table scan or table function execution.
type ScanOptions struct {
	// Columns to return, by name. If nil/empty, return all columns.
	// Ignored when Projection is set.
	Columns []string

	// Filter is a serialized predicate over the table columns (filter JSON).
	// If nil, every row is returned.
	Filter []byte

	// Projection is a serialized expression list evaluated for each row that
	// passes Filter. If nil, rows keep the table columns.
	Projection []byte

	// Limit is the maximum number of rows to return.
	// If 0 or negative, no limit.
	Limit int64

	// BatchSize is the number of rows per record batch.
	// If 0, the implementation chooses a default.
	BatchSize int

	// RowType is the row type a table function call was planned with. When set,
	// Execute reads with this schema instead of resolving the call again.
	RowType *arrow.Schema
}

// ScanFunc produces table data for a static table.
type ScanFunc func(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
