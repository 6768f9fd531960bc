package filetable

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/internal/serialize"
)

// ExportColumns lists the columns of every table in cat as a zstd-compressed
// Arrow IPC stream with one row per column:
//
//	table_schema, table_name, column_name  utf8
//	ordinal_position                       int32, starting at 1
//	data_type                              utf8, the Arrow type name
//	external_name, format                  utf8, NULL for non-file tables
//
// A nil mem uses memory.DefaultAllocator.
func ExportColumns(ctx context.Context, cat catalog.Catalog, mem memory.Allocator) ([]byte, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return serialize.CompressColumns(ctx, cat, mem)
}
