// Package serialize exports catalog metadata as a compressed Arrow IPC stream.
package serialize

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
)

// ColumnsSchema is the layout of the exported column listing, one row per
// table column in the style of information_schema.columns.
var ColumnsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "table_schema", Type: arrow.BinaryTypes.String},
	{Name: "table_name", Type: arrow.BinaryTypes.String},
	{Name: "column_name", Type: arrow.BinaryTypes.String},
	{Name: "ordinal_position", Type: arrow.PrimitiveTypes.Int32},
	{Name: "data_type", Type: arrow.BinaryTypes.String},
	{Name: "external_name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "format", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// Columns writes the columns of every table in cat as an Arrow IPC stream.
// Schemas and tables appear in catalog order; ordinal positions start at 1.
func Columns(ctx context.Context, cat catalog.Catalog, mem memory.Allocator) ([]byte, error) {
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	b := array.NewRecordBuilder(mem, ColumnsSchema)
	defer b.Release()

	schemaName := b.Field(0).(*array.StringBuilder)
	tableName := b.Field(1).(*array.StringBuilder)
	columnName := b.Field(2).(*array.StringBuilder)
	position := b.Field(3).(*array.Int32Builder)
	dataType := b.Field(4).(*array.StringBuilder)
	externalName := b.Field(5).(*array.StringBuilder)
	format := b.Field(6).(*array.StringBuilder)

	for _, schema := range schemas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tables, err := schema.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables of schema %s: %w", schema.Name(), err)
		}

		for _, table := range tables {
			ts := table.ArrowSchema()
			if ts == nil {
				continue
			}
			tableFormat, hasFormat := ts.Metadata().GetValue(file.MetadataFormat)
			for i, field := range ts.Fields() {
				schemaName.Append(schema.Name())
				tableName.Append(table.Name())
				columnName.Append(field.Name)
				position.Append(int32(i + 1))
				dataType.Append(field.Type.String())
				external, hasExternal := field.Metadata.GetValue(file.MetadataExternalName)
				appendOptional(externalName, external, hasExternal)
				appendOptional(format, tableFormat, hasFormat)
			}
		}
	}

	rec := b.NewRecordBatch()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(ColumnsSchema), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("write IPC record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close IPC writer: %w", err)
	}
	return buf.Bytes(), nil
}

func appendOptional(b *array.StringBuilder, v string, ok bool) {
	if !ok {
		b.AppendNull()
		return
	}
	b.Append(v)
}

// CompressColumns is Columns followed by zstd compression.
func CompressColumns(ctx context.Context, cat catalog.Catalog, mem memory.Allocator) ([]byte, error) {
	data, err := Columns(ctx, cat, mem)
	if err != nil {
		return nil, err
	}

	return Compress(data)
}
