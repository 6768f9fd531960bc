package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/filetable/argument"
)

// TableFunction is a table-valued function whose row type depends on its
// constant arguments, e.g. CSV_FILE('/data', 'users.csv').
type TableFunction interface {
	// Name returns the function name. By convention UPPERCASE.
	Name() string

	// Comment returns optional function documentation.
	Comment() string

	// Parameters returns the declared parameters in ordinal order.
	Parameters() []argument.Parameter

	// RowType resolves the output schema for the call operands.
	// Operands are matched to Parameters by position; missing trailing operands
	// are treated as DEFAULT.
	RowType(ctx context.Context, operands []argument.Node) (*arrow.Schema, error)

	// Execute scans the source described by operands.
	// The reader schema matches RowType, or the projected schema when
	// opts carries columns or projections.
	// Caller MUST call reader.Release().
	Execute(ctx context.Context, operands []argument.Node, opts *ScanOptions) (array.RecordReader, error)
}
