package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Table is a named relation with a fixed row type, such as a file mapping.
// Implementations must be safe for concurrent use.
type Table interface {
	Name() string
	Comment() string

	// ArrowSchema is the row type. File-backed tables tag each field with
	// its external name and the schema with the file format.
	ArrowSchema() *arrow.Schema

	// Scan streams the rows selected by opts. A nil opts scans everything.
	// Scans stop when ctx is done. The caller releases the reader.
	Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
}
