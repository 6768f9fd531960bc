package filetable

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
	"github.com/hugr-lab/filetable/source"
)

// Function names. Lookup is case-insensitive.
const (
	CSVFileFunction     = "CSV_FILE"
	JSONLFileFunction   = "JSONL_FILE"
	AvroFileFunction    = "AVRO_FILE"
	ParquetFileFunction = "PARQUET_FILE"
)

var fileFunctions = []struct {
	name    string
	format  string
	comment string
}{
	{CSVFileFunction, source.FormatCSV, "Reads CSV files with a header row. Every column is VARCHAR."},
	{JSONLFileFunction, source.FormatJSON, "Reads JSON lines files. Column types are inferred from the first record."},
	{AvroFileFunction, source.FormatAvro, "Reads Avro object container files using the writer schema."},
	{ParquetFileFunction, source.FormatParquet, "Reads Parquet files using the file schema."},
}

// FunctionTable holds the file table functions, one per supported format.
// It is immutable and safe for concurrent use.
type FunctionTable struct {
	functions []*FileTableFunction
	byName    map[string]*FileTableFunction
}

// NewFunctionTable builds the file table functions from cfg.
func NewFunctionTable(cfg Config) (*FunctionTable, error) {
	s, err := newSettings(cfg)
	if err != nil {
		return nil, err
	}
	return newFunctionTable(s), nil
}

func newFunctionTable(s settings) *FunctionTable {
	resolvers := file.Resolvers(s.opener, s.logger)

	t := &FunctionTable{
		functions: make([]*FileTableFunction, 0, len(fileFunctions)),
		byName:    make(map[string]*FileTableFunction, len(fileFunctions)),
	}
	for _, def := range fileFunctions {
		fn := newFileTableFunction(def.name, def.comment, resolvers[def.format], s)
		t.functions = append(t.functions, fn)
		t.byName[def.name] = fn
	}
	return t
}

// Lookup returns the function with the given name, ignoring case.
func (t *FunctionTable) Lookup(name string) (*FileTableFunction, error) {
	fn, ok := t.byName[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("table function %s: %w", name, catalog.ErrNotFound)
	}
	return fn, nil
}

// TableFunctions returns all functions in registration order.
func (t *FunctionTable) TableFunctions() []catalog.TableFunction {
	out := make([]catalog.TableFunction, len(t.functions))
	for i, fn := range t.functions {
		out[i] = fn
	}
	return out
}

var (
	functionsMu sync.RWMutex
	functions   *FunctionTable
)

// InitFunctionTable builds the process-wide function table. It succeeds once;
// later calls return ErrAlreadyInitialized.
func InitFunctionTable(cfg Config) (*FunctionTable, error) {
	s, err := newSettings(cfg)
	if err != nil {
		return nil, err
	}

	functionsMu.Lock()
	defer functionsMu.Unlock()

	if functions != nil {
		return nil, ErrAlreadyInitialized
	}
	functions = newFunctionTable(s)

	s.logger.Info("File table functions initialized",
		"functions", len(functions.functions),
		"batch_size", s.batchSize,
	)
	return functions, nil
}

// Functions returns the process-wide function table.
func Functions() (*FunctionTable, error) {
	functionsMu.RLock()
	defer functionsMu.RUnlock()

	if functions == nil {
		return nil, ErrNotInitialized
	}
	return functions, nil
}
