package filetable

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filetable/argument"
	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
	"github.com/hugr-lab/filetable/rowexec"
	"github.com/hugr-lab/filetable/source"
)

func testConfig() Config {
	return Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func lookup(t *testing.T, name string) *FileTableFunction {
	t.Helper()
	table, err := NewFunctionTable(testConfig())
	if err != nil {
		t.Fatalf("NewFunctionTable failed: %v", err)
	}
	fn, err := table.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%s) failed: %v", name, err)
	}
	return fn
}

func fieldNames(schema *arrow.Schema) []string {
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	return names
}

func TestCSVFileRowType(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "users.csv", "id,name,score\n1,alice,10.5\n")
	writeTestFile(t, dir, "notes.txt", "not,a,table\n")

	fn := lookup(t, "csv_file")
	schema, err := fn.RowType(context.Background(), []argument.Node{
		argument.CharLiteral(dir),
		argument.CharLiteral("*.csv"),
	})
	if err != nil {
		t.Fatalf("RowType failed: %v", err)
	}

	if got := strings.Join(fieldNames(schema), ","); got != "id,name,score" {
		t.Errorf("fields = %s, want id,name,score", got)
	}
	for _, f := range schema.Fields() {
		if !arrow.TypeEqual(f.Type, arrow.BinaryTypes.String) {
			t.Errorf("field %s: type %s, want utf8", f.Name, f.Type)
		}
		if !f.Nullable {
			t.Errorf("field %s: expected nullable", f.Name)
		}
		if ext, _ := f.Metadata.GetValue(file.MetadataExternalName); ext != f.Name {
			t.Errorf("field %s: external name %q", f.Name, ext)
		}
	}
	if format, _ := schema.Metadata().GetValue(file.MetadataFormat); format != "csv" {
		t.Errorf("format metadata = %q, want csv", format)
	}
}

func TestJSONLFileRowType(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "events.jsonl", `{"id": 1, "kind": "click", "ok": true}`+"\n"+`{"id": 2, "kind": "view", "ok": false}`+"\n")

	fn := lookup(t, "JSONL_FILE")
	schema, err := fn.RowType(context.Background(), []argument.Node{argument.CharLiteral(dir)})
	if err != nil {
		t.Fatalf("RowType failed: %v", err)
	}

	want := []arrow.DataType{
		arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.String,
		arrow.FixedWidthTypes.Boolean,
	}
	if got := strings.Join(fieldNames(schema), ","); got != "id,kind,ok" {
		t.Fatalf("fields = %s, want id,kind,ok", got)
	}
	for i, typ := range want {
		if !arrow.TypeEqual(schema.Field(i).Type, typ) {
			t.Errorf("field %s: type %s, want %s", schema.Field(i).Name, schema.Field(i).Type, typ)
		}
	}
}

func TestFileFunctionRejectsNonLiteralArguments(t *testing.T) {
	fn := lookup(t, "CSV_FILE")

	tests := []struct {
		name string
		node argument.Node
	}{
		{"map", argument.MapConstructor(argument.CharLiteral("key"), argument.CharLiteral("value"))},
		{"array", argument.Call(argument.KindArrayConstructor, argument.CharLiteral("value"))},
		{"cast", argument.Call(argument.KindCast, argument.CharLiteral("true"))},
		{"boolean", argument.Literal(argument.TypeBoolean, true)},
		{"tinyint", argument.Literal(argument.TypeDecimal, "127")},
		{"smallint", argument.Literal(argument.TypeDecimal, "32767")},
		{"int", argument.Literal(argument.TypeDecimal, "2147483647")},
		{"bigint", argument.Literal(argument.TypeDecimal, "9223372036854775807")},
		{"real", argument.Literal(argument.TypeDouble, "1234567890.1")},
		{"double", argument.Literal(argument.TypeDouble, "123451234567890.1")},
		{"decimal", argument.Literal(argument.TypeDouble, "9223372036854775.123")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fn.RowType(context.Background(), []argument.Node{argument.CharLiteral("/data"), tt.node})
			if err == nil {
				t.Fatal("expected error")
			}

			var compileErr *CompileError
			if !errors.As(err, &compileErr) || compileErr.Function != "CSV_FILE" {
				t.Fatalf("expected CompileError for CSV_FILE, got %v", err)
			}
			if !errors.Is(err, argument.ErrNotALiteral) {
				t.Errorf("expected ErrNotALiteral, got %v", err)
			}
			if want := "All arguments of call to function CSV_FILE should be VARCHAR literals"; !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not contain %q", err, want)
			}
		})
	}
}

func TestFileFunctionAcceptsLiteralArguments(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "file.csv", "a;b\n1;2\n")

	fn := lookup(t, "CSV_FILE")
	delimiter := argument.MapConstructor(argument.CharLiteral("delimiter"), argument.CharLiteral(";"))

	tests := []struct {
		name     string
		operands []argument.Node
		want     string
	}{
		{
			name:     "named options",
			operands: []argument.Node{argument.CharLiteral(dir), argument.CharLiteral("file.csv"), argument.Default(), delimiter},
			want:     "a,b",
		},
		{
			name:     "null glob and shared file system",
			operands: []argument.Node{argument.CharLiteral(dir), argument.NullLiteral(), argument.CharLiteral("true"), delimiter},
			want:     "a,b",
		},
		{
			name:     "null options use the default delimiter",
			operands: []argument.Node{argument.CharLiteral(dir), argument.Default(), argument.Default(), argument.NullLiteral()},
			want:     "a;b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := fn.RowType(context.Background(), tt.operands)
			if err != nil {
				t.Fatalf("RowType failed: %v", err)
			}
			if got := strings.Join(fieldNames(schema), ","); got != tt.want {
				t.Errorf("fields = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFileFunctionResolutionErrors(t *testing.T) {
	empty := t.TempDir()
	fn := lookup(t, "PARQUET_FILE")

	tests := []struct {
		name     string
		operands []argument.Node
		wantErr  error
	}{
		{"missing path", []argument.Node{argument.Default()}, file.ErrInvalidOption},
		{"too many arguments", []argument.Node{
			argument.CharLiteral(empty), argument.Default(), argument.Default(), argument.Default(), argument.Default(),
		}, argument.ErrArity},
		{"empty source", []argument.Node{argument.CharLiteral(empty), argument.CharLiteral("*.parquet")}, file.ErrEmptySource},
		{"missing directory", []argument.Node{argument.CharLiteral(filepath.Join(empty, "missing"))}, file.ErrIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fn.RowType(context.Background(), tt.operands)
			var compileErr *CompileError
			if !errors.As(err, &compileErr) {
				t.Fatalf("expected CompileError, got %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if !strings.HasPrefix(err.Error(), "PARQUET_FILE: ") {
				t.Errorf("error %q does not name the function", err)
			}
		})
	}
}

// countingOpener records the options of every Open before delegating.
type countingOpener struct {
	opener source.Opener
	opens  []source.Options
}

func (o *countingOpener) Open(ctx context.Context, opts source.Options) (source.Scan, error) {
	o.opens = append(o.opens, opts)
	return o.opener.Open(ctx, opts)
}

func functionWithOpener(t *testing.T, name string, opener source.Opener) *FileTableFunction {
	t.Helper()
	cfg := testConfig()
	cfg.Opener = opener
	table, err := NewFunctionTable(cfg)
	if err != nil {
		t.Fatalf("NewFunctionTable failed: %v", err)
	}
	fn, err := table.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%s) failed: %v", name, err)
	}
	return fn
}

func TestFileFunctionPassesArgumentsToOpener(t *testing.T) {
	opener := &countingOpener{opener: source.OpenerFunc(func(context.Context, source.Options) (source.Scan, error) {
		return &source.SliceScan{Records: []*source.Record{{Attributes: []source.Attribute{{Name: "a", Value: "1"}}}}}, nil
	})}
	fn := functionWithOpener(t, "csv_file", opener)

	schema, err := fn.RowType(context.Background(), []argument.Node{
		argument.CharLiteral("/x"),
		argument.CharLiteral("f.csv"),
		argument.Default(),
		argument.MapConstructor(argument.CharLiteral("k"), argument.CharLiteral("v")),
	})
	if err != nil {
		t.Fatalf("RowType failed: %v", err)
	}
	if got := fieldNames(schema); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("fields = %v, want [a]", got)
	}

	if len(opener.opens) != 1 {
		t.Fatalf("expected 1 open, got %d", len(opener.opens))
	}
	want := source.Options{
		Format:      source.FormatCSV,
		Path:        "/x",
		Glob:        "f.csv",
		FileOptions: map[string]string{"k": "v"},
	}
	if !reflect.DeepEqual(opener.opens[0], want) {
		t.Errorf("opened with %+v, want %+v", opener.opens[0], want)
	}
}

func TestExecuteWithPlannedRowType(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "data.csv", "a,b\n1,2\n")

	opener := &countingOpener{opener: source.NewLocalOpener(nil)}
	fn := functionWithOpener(t, "csv_file", opener)
	operands := []argument.Node{argument.CharLiteral(dir)}

	rowType, err := fn.RowType(context.Background(), operands)
	if err != nil {
		t.Fatalf("RowType failed: %v", err)
	}

	// The file changes between planning and execution.
	writeTestFile(t, dir, "data.csv", "b,c\n3,4\n")
	opener.opens = nil

	reader, err := fn.Execute(context.Background(), operands, &catalog.ScanOptions{RowType: rowType})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !reader.Schema().Equal(rowType) {
		reader.Release()
		t.Fatalf("schema %s, want planned %s", reader.Schema(), rowType)
	}
	rows, _ := readAll(t, reader)
	if want := []rowexec.Row{{nil, "3"}}; !reflect.DeepEqual(rows, want) {
		t.Errorf("got %v, want %v", rows, want)
	}
	if len(opener.opens) != 1 {
		t.Errorf("expected only the scan to open the source, got %d opens", len(opener.opens))
	}
}

func TestExecuteRejectsForeignRowType(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "data.csv", "a\n1\n")
	operands := []argument.Node{argument.CharLiteral(dir)}

	rowType, err := lookup(t, "csv_file").RowType(context.Background(), operands)
	if err != nil {
		t.Fatalf("RowType failed: %v", err)
	}

	tests := []struct {
		name    string
		rowType *arrow.Schema
	}{
		{"other format", rowType},
		{"no columns", arrow.NewSchema(nil, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := lookup(t, "jsonl_file").Execute(context.Background(), operands, &catalog.ScanOptions{RowType: tt.rowType})
			if err == nil {
				reader.Release()
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidScan) {
				t.Errorf("expected ErrInvalidScan, got %v", err)
			}
		})
	}
}

func TestCSVFileDuplicateHeader(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "dup.csv", "a,a\n1,2\n")

	_, err := lookup(t, "csv_file").RowType(context.Background(), []argument.Node{argument.CharLiteral(dir)})
	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if !errors.Is(err, file.ErrUnsupportedAttribute) {
		t.Errorf("expected ErrUnsupportedAttribute, got %v", err)
	}
}

func TestFileFunctionParameters(t *testing.T) {
	fn := lookup(t, "avro_file")

	params := fn.Parameters()
	want := []string{"path", "glob", "sharedFileSystem", "options"}
	if len(params) != len(want) {
		t.Fatalf("expected %d parameters, got %d", len(want), len(params))
	}
	for i, p := range params {
		if p.Ordinal != i || p.Name != want[i] || p.Optional != (i > 0) {
			t.Errorf("parameter %d = %+v", i, p)
		}
	}

	params[0].Name = "changed"
	if fn.Parameters()[0].Name != "path" {
		t.Error("Parameters returned shared state")
	}
	if fn.Format() != "avro" || fn.Name() != "AVRO_FILE" || fn.Comment() == "" {
		t.Errorf("unexpected function %s (%s): %q", fn.Name(), fn.Format(), fn.Comment())
	}
}
