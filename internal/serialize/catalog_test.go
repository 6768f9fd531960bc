package serialize

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
)

func testCatalog() catalog.Catalog {
	users := (&file.Metadata{
		Format: "csv",
		Fields: []file.TableField{
			{Name: "id", Type: arrow.BinaryTypes.String, ExternalName: "id"},
			{Name: "name", Type: arrow.BinaryTypes.String, ExternalName: "full_name"},
		},
	}).Schema()
	plain := arrow.NewSchema([]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	cat := catalog.NewStaticCatalog()
	cat.AddSchema("main", "", map[string]catalog.Table{
		"users":  catalog.NewStaticTable("users", "", users, nil),
		"counts": catalog.NewStaticTable("counts", "", plain, nil),
	}, nil)
	return cat
}

func readColumns(t *testing.T, mem memory.Allocator, data []byte) arrow.RecordBatch {
	t.Helper()
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		t.Fatalf("ipc.NewReader failed: %v", err)
	}
	defer r.Release()

	if !r.Next() {
		t.Fatalf("expected one record: %v", r.Err())
	}
	rec := r.RecordBatch()
	rec.Retain()
	return rec
}

func TestColumns(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	data, err := Columns(context.Background(), testCatalog(), mem)
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}

	rec := readColumns(t, mem, data)
	defer rec.Release()

	if !rec.Schema().Equal(ColumnsSchema) {
		t.Fatalf("unexpected schema %s", rec.Schema())
	}
	if rec.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", rec.NumRows())
	}

	tables := rec.Column(1).(*array.String)
	columns := rec.Column(2).(*array.String)
	positions := rec.Column(3).(*array.Int32)
	types := rec.Column(4).(*array.String)
	external := rec.Column(5).(*array.String)
	formats := rec.Column(6).(*array.String)

	// Tables are listed by name: counts before users.
	if tables.Value(0) != "counts" || columns.Value(0) != "n" || types.Value(0) != "int64" {
		t.Errorf("row 0 = %s.%s %s", tables.Value(0), columns.Value(0), types.Value(0))
	}
	if !external.IsNull(0) || !formats.IsNull(0) {
		t.Error("row 0: expected NULL external name and format")
	}

	if columns.Value(2) != "name" || positions.Value(2) != 2 || external.Value(2) != "full_name" || formats.Value(2) != "csv" {
		t.Errorf("row 2 = %s #%d external %s format %s",
			columns.Value(2), positions.Value(2), external.Value(2), formats.Value(2))
	}
}

func TestCompressColumnsRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	compressed, err := CompressColumns(context.Background(), testCatalog(), mem)
	if err != nil {
		t.Fatalf("CompressColumns failed: %v", err)
	}

	data, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	rec := readColumns(t, mem, data)
	defer rec.Release()
	if rec.NumRows() != 3 {
		t.Errorf("expected 3 rows, got %d", rec.NumRows())
	}
}

func TestCompressEmpty(t *testing.T) {
	out, err := Compress(nil)
	if err != nil || len(out) != 0 {
		t.Errorf("got %v, %v; want empty output", out, err)
	}
	out, err = Decompress(nil)
	if err != nil || len(out) != 0 {
		t.Errorf("got %v, %v; want empty output", out, err)
	}
}

func TestDecompressCorrupt(t *testing.T) {
	if _, err := Decompress([]byte("not a zstd frame")); err == nil {
		t.Error("expected error for corrupt input")
	}
}

func TestColumnsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Columns(ctx, testCatalog(), memory.DefaultAllocator); err == nil {
		t.Error("expected error for cancelled context")
	}
}
