package filetable

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"

	"github.com/hugr-lab/filetable/argument"
	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
	"github.com/hugr-lab/filetable/internal/recovery"
	"github.com/hugr-lab/filetable/rowexec"
	"github.com/hugr-lab/filetable/source"
)

const usersCSV = "id,name,score\n1,alice,10.5\n2,bob,7\n3,carol,12\n4,dave\n"

func colJSON(index int, typ string) string {
	return fmt.Sprintf(`{
		"expression_class": "BOUND_COLUMN_REF",
		"type": "BOUND_COLUMN_REF",
		"alias": "",
		"return_type": {"id": %q, "type_info": null},
		"binding": {"table_index": 0, "column_index": %d},
		"depth": 0
	}`, typ, index)
}

func constJSON(typ, value string) string {
	return fmt.Sprintf(`{
		"expression_class": "BOUND_CONSTANT",
		"type": "VALUE_CONSTANT",
		"alias": "",
		"value": {"type": {"id": %q, "type_info": null}, "is_null": false, "value": %s}
	}`, typ, value)
}

func compareJSON(typ, left, right string) string {
	return fmt.Sprintf(`{
		"expression_class": "BOUND_COMPARISON",
		"type": %q,
		"alias": "",
		"left": %s,
		"right": %s
	}`, typ, left, right)
}

func castJSON(child, typ, alias string) string {
	return fmt.Sprintf(`{
		"expression_class": "BOUND_CAST",
		"type": "CAST",
		"alias": %q,
		"child": %s,
		"return_type": {"id": %q, "type_info": null},
		"try_cast": false
	}`, alias, child, typ)
}

func filterJSON(bindings string, filters ...string) []byte {
	return []byte(`{"filters": [` + strings.Join(filters, ",") + `], "column_binding_names_by_index": ` + bindings + `}`)
}

// readAll drains reader into rows, checking every batch against the reader schema.
func readAll(t *testing.T, reader array.RecordReader) (rows []rowexec.Row, batches int) {
	t.Helper()
	defer reader.Release()

	for reader.Next() {
		rec := reader.RecordBatch()
		if !rec.Schema().Equal(reader.Schema()) {
			t.Fatalf("batch schema %s does not match reader schema %s", rec.Schema(), reader.Schema())
		}
		batch, err := rowexec.RecordRows(rec)
		if err != nil {
			t.Fatalf("RecordRows failed: %v", err)
		}
		rows = append(rows, batch...)
		batches++
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("reader failed: %v", err)
	}
	return rows, batches
}

func executeUsers(t *testing.T, cfg Config, opts *catalog.ScanOptions) (array.RecordReader, error) {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "users.csv", usersCSV)

	table, err := NewFunctionTable(cfg)
	if err != nil {
		t.Fatalf("NewFunctionTable failed: %v", err)
	}
	fn, _ := table.Lookup("csv_file")
	return fn.Execute(context.Background(), []argument.Node{argument.CharLiteral(dir)}, opts)
}

func TestExecuteAllRows(t *testing.T) {
	reader, err := executeUsers(t, testConfig(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rows, batches := readAll(t, reader)
	want := []rowexec.Row{
		{"1", "alice", "10.5"},
		{"2", "bob", "7"},
		{"3", "carol", "12"},
		{"4", "dave", nil},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("got %v, want %v", rows, want)
	}
	if batches != 1 {
		t.Errorf("expected 1 batch, got %d", batches)
	}
}

func TestExecuteScanOptions(t *testing.T) {
	tests := []struct {
		name        string
		opts        *catalog.ScanOptions
		wantFields  []string
		wantRows    []rowexec.Row
		wantBatches int
	}{
		{
			name:        "columns",
			opts:        &catalog.ScanOptions{Columns: []string{"name", "id"}},
			wantFields:  []string{"name", "id"},
			wantRows:    []rowexec.Row{{"alice", "1"}, {"bob", "2"}, {"carol", "3"}, {"dave", "4"}},
			wantBatches: 1,
		},
		{
			name:        "limit across batches",
			opts:        &catalog.ScanOptions{Limit: 3, BatchSize: 2},
			wantFields:  []string{"id", "name", "score"},
			wantRows:    []rowexec.Row{{"1", "alice", "10.5"}, {"2", "bob", "7"}, {"3", "carol", "12"}},
			wantBatches: 2,
		},
		{
			name: "filter",
			opts: &catalog.ScanOptions{
				Filter: filterJSON(`["id", "name", "score"]`,
					compareJSON("COMPARE_NOTEQUAL", colJSON(1, "VARCHAR"), constJSON("VARCHAR", `"bob"`))),
				Columns: []string{"name"},
			},
			wantFields:  []string{"name"},
			wantRows:    []rowexec.Row{{"alice"}, {"carol"}, {"dave"}},
			wantBatches: 1,
		},
		{
			name: "filter drops every row of a batch",
			opts: &catalog.ScanOptions{
				Filter: filterJSON(`[]`,
					compareJSON("COMPARE_GREATERTHANOREQUAL", colJSON(0, "VARCHAR"), constJSON("VARCHAR", `"3"`))),
				BatchSize: 2,
			},
			wantFields:  []string{"id", "name", "score"},
			wantRows:    []rowexec.Row{{"3", "carol", "12"}, {"4", "dave", nil}},
			wantBatches: 1,
		},
		{
			name: "projection",
			opts: &catalog.ScanOptions{
				Filter: filterJSON(`[]`,
					compareJSON("COMPARE_GREATERTHAN", castJSON(colJSON(2, "VARCHAR"), "DOUBLE", ""), constJSON("DOUBLE", "8"))),
				Projection: []byte(`[` + castJSON(colJSON(0, "VARCHAR"), "BIGINT", "id") + `]`),
			},
			wantFields:  []string{"id"},
			wantRows:    []rowexec.Row{{int64(1)}, {int64(3)}},
			wantBatches: 1,
		},
		{
			name: "empty projection list",
			opts: &catalog.ScanOptions{
				Projection: []byte(`[]`),
				Limit:      2,
			},
			wantFields:  []string{},
			wantRows:    []rowexec.Row{{}, {}},
			wantBatches: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := executeUsers(t, testConfig(), tt.opts)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			if got := fieldNames(reader.Schema()); !reflect.DeepEqual(got, tt.wantFields) {
				reader.Release()
				t.Fatalf("fields = %v, want %v", got, tt.wantFields)
			}

			rows, batches := readAll(t, reader)
			if !reflect.DeepEqual(rows, tt.wantRows) {
				t.Errorf("got %v, want %v", rows, tt.wantRows)
			}
			if batches != tt.wantBatches {
				t.Errorf("expected %d batches, got %d", tt.wantBatches, batches)
			}
		})
	}
}

func TestExecuteInvalidScanOptions(t *testing.T) {
	tests := []struct {
		name string
		opts *catalog.ScanOptions
	}{
		{"unknown column", &catalog.ScanOptions{Columns: []string{"missing"}}},
		{"malformed filter", &catalog.ScanOptions{Filter: []byte(`{"filters": [`)}},
		{"mismatched binding", &catalog.ScanOptions{Filter: filterJSON(`["name"]`,
			compareJSON("COMPARE_EQUAL", colJSON(0, "VARCHAR"), constJSON("VARCHAR", `"1"`)))}},
		{"malformed projection", &catalog.ScanOptions{Projection: []byte(`{}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := executeUsers(t, testConfig(), tt.opts)
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

func TestExecuteEvaluationError(t *testing.T) {
	// CAST(name AS BIGINT) fails on the first row.
	reader, err := executeUsers(t, testConfig(), &catalog.ScanOptions{
		Projection: []byte(`[` + castJSON(colJSON(1, "VARCHAR"), "BIGINT", "") + `]`),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	defer reader.Release()

	if reader.Next() {
		t.Fatal("expected no batch")
	}
	var evalErr *rowexec.RowEvaluationError
	if !errors.As(reader.Err(), &evalErr) {
		t.Fatalf("expected RowEvaluationError, got %v", reader.Err())
	}
	if evalErr.ExpressionIndex != 0 || evalErr.RowIndex != 0 {
		t.Errorf("got expression %d row %d", evalErr.ExpressionIndex, evalErr.RowIndex)
	}
}

func TestExecuteEvaluationErrorRowIndex(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "numbers.csv", "n\n1\n2\n3\nx\n5\n")

	reader, err := lookup(t, "csv_file").Execute(context.Background(), []argument.Node{argument.CharLiteral(dir)}, &catalog.ScanOptions{
		Projection: []byte(`[` + castJSON(colJSON(0, "VARCHAR"), "BIGINT", "n") + `]`),
		BatchSize:  2,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	defer reader.Release()

	if !reader.Next() {
		t.Fatalf("expected a first batch, got %v", reader.Err())
	}
	if reader.Next() {
		t.Fatal("expected the second batch to fail")
	}
	var evalErr *rowexec.RowEvaluationError
	if !errors.As(reader.Err(), &evalErr) {
		t.Fatalf("expected RowEvaluationError, got %v", reader.Err())
	}
	if evalErr.RowIndex != 3 {
		t.Errorf("row index = %d, want 3", evalErr.RowIndex)
	}
}

func TestExecuteKeepsDecimals(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "payments.csv", "id,amount\n1,12345678901234567.89\n2,-0.01\n3\n")
	operands := []argument.Node{argument.CharLiteral(dir)}

	md := arrow.NewMetadata([]string{file.MetadataFormat}, []string{source.FormatCSV})
	rowType := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "amount", Type: &arrow.Decimal128Type{Precision: 38, Scale: 2}, Nullable: true},
	}, &md)

	reader, err := lookup(t, "csv_file").Execute(context.Background(), operands, &catalog.ScanOptions{
		RowType: rowType,
		Filter: filterJSON(`["id", "amount"]`,
			compareJSON("COMPARE_GREATERTHANOREQUAL", colJSON(0, "VARCHAR"), constJSON("VARCHAR", `"1"`))),
		Columns: []string{"amount"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rows, _ := readAll(t, reader)
	want := []string{"12345678901234567.89", "-0.01", ""}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, row := range rows {
		got := ""
		if row[0] != nil {
			got = row[0].(decimal.Decimal).StringFixed(2)
		}
		if got != want[i] {
			t.Errorf("row %d: amount = %q, want %q", i, got, want[i])
		}
	}
}

func TestExecuteCancelled(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "users.csv", usersCSV)
	fn := lookup(t, "CSV_FILE")

	ctx, cancel := context.WithCancel(context.Background())
	reader, err := fn.Execute(ctx, []argument.Node{argument.CharLiteral(dir)}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	defer reader.Release()

	cancel()
	if reader.Next() {
		t.Fatal("expected no batch after cancel")
	}
	if !errors.Is(reader.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", reader.Err())
	}
}

// recordingScan serves fixed records and remembers whether it was closed.
type recordingScan struct {
	source.SliceScan
	panicAt int
	reads   int
}

func (s *recordingScan) Next() (*source.Record, error) {
	s.reads++
	if s.panicAt > 0 && s.reads == s.panicAt {
		panic("corrupt block")
	}
	return s.SliceScan.Next()
}

func numberRecords(n int) []*source.Record {
	records := make([]*source.Record, n)
	for i := range records {
		records[i] = &source.Record{Attributes: []source.Attribute{
			{Name: "n", Value: int64(i), Type: arrow.PrimitiveTypes.Int64},
		}}
	}
	return records
}

func openerFor(scans ...*recordingScan) source.Opener {
	return source.OpenerFunc(func(ctx context.Context, opts source.Options) (source.Scan, error) {
		scan := scans[0]
		scans = scans[1:]
		return scan, nil
	})
}

func TestExecuteClosesScan(t *testing.T) {
	sample := &recordingScan{SliceScan: source.SliceScan{Records: numberRecords(1)}}
	full := &recordingScan{SliceScan: source.SliceScan{Records: numberRecords(10)}}

	cfg := testConfig()
	cfg.Opener = openerFor(sample, full, sample, full)
	table, err := NewFunctionTable(cfg)
	if err != nil {
		t.Fatalf("NewFunctionTable failed: %v", err)
	}
	fn, _ := table.Lookup("PARQUET_FILE")
	operands := []argument.Node{argument.CharLiteral("/data")}

	reader, err := fn.Execute(context.Background(), operands, &catalog.ScanOptions{Limit: 4})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	rows, _ := readAll(t, reader)
	if len(rows) != 4 || rows[3][0] != int64(3) {
		t.Errorf("unexpected rows %v", rows)
	}
	if !sample.Closed() || !full.Closed() {
		t.Error("expected both scans to be closed")
	}

	// Releasing before the end closes the scan too.
	sample.SliceScan = source.SliceScan{Records: numberRecords(1)}
	full.SliceScan = source.SliceScan{Records: numberRecords(10)}
	reader, err = fn.Execute(context.Background(), operands, &catalog.ScanOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !reader.Next() {
		t.Fatalf("expected a batch: %v", reader.Err())
	}
	reader.Release()
	if !full.Closed() {
		t.Error("expected scan to be closed on release")
	}
}

func TestExecuteRecoversScanPanic(t *testing.T) {
	sample := &recordingScan{SliceScan: source.SliceScan{Records: numberRecords(1)}}
	full := &recordingScan{SliceScan: source.SliceScan{Records: numberRecords(10)}, panicAt: 3}

	cfg := testConfig()
	cfg.Opener = openerFor(sample, full)
	table, _ := NewFunctionTable(cfg)
	fn, _ := table.Lookup("AVRO_FILE")

	reader, err := fn.Execute(context.Background(), []argument.Node{argument.CharLiteral("/data")}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	defer reader.Release()

	if reader.Next() {
		t.Fatal("expected no batch")
	}
	if !errors.Is(reader.Err(), recovery.ErrPanic) {
		t.Errorf("expected ErrPanic, got %v", reader.Err())
	}
	if !full.Closed() {
		t.Error("expected scan to be closed after panic")
	}
}

func TestExecuteMemory(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	cfg := testConfig()
	cfg.Allocator = mem

	opts := []*catalog.ScanOptions{
		nil,
		{BatchSize: 1, Limit: 2},
		{Columns: []string{"score"}},
		{Projection: []byte(`[` + castJSON(colJSON(1, "VARCHAR"), "BIGINT", "") + `]`)},
	}
	for i, o := range opts {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			reader, err := executeUsers(t, cfg, o)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			for reader.Next() {
			}
			reader.Release()
		})
	}
}
