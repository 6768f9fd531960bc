package catalog

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// StaticCatalog is a catalog whose contents are fixed once built.
// AddSchema is not safe for concurrent use; all read methods are.
type StaticCatalog struct {
	schemas []*staticSchema // sorted by name
}

// NewStaticCatalog creates an empty static catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{}
}

// AddSchema adds or replaces a schema. Tables are keyed by name; functions
// keep their order. It must only be called while building.
func (c *StaticCatalog) AddSchema(name, comment string, tables map[string]Table, functions []TableFunction) {
	s := &staticSchema{
		name:      name,
		comment:   comment,
		tables:    make([]namedTable, 0, len(tables)),
		functions: slices.Clone(functions),
	}
	for _, key := range slices.Sorted(maps.Keys(tables)) {
		s.tables = append(s.tables, namedTable{key: key, table: tables[key]})
	}
	if s.functions == nil {
		s.functions = []TableFunction{}
	}

	i, found := c.find(name)
	if found {
		c.schemas[i] = s
		return
	}
	c.schemas = slices.Insert(c.schemas, i, s)
}

func (c *StaticCatalog) find(name string) (int, bool) {
	return slices.BinarySearchFunc(c.schemas, name, func(s *staticSchema, name string) int {
		return cmp.Compare(s.name, name)
	})
}

// Schemas implements Catalog.
func (c *StaticCatalog) Schemas(ctx context.Context) ([]Schema, error) {
	out := make([]Schema, len(c.schemas))
	for i, s := range c.schemas {
		out[i] = s
	}
	return out, nil
}

// Schema implements Catalog.
func (c *StaticCatalog) Schema(ctx context.Context, name string) (Schema, error) {
	if i, found := c.find(name); found {
		return c.schemas[i], nil
	}
	return nil, nil
}

type namedTable struct {
	key   string
	table Table
}

type staticSchema struct {
	name      string
	comment   string
	tables    []namedTable // sorted by key
	functions []TableFunction
}

func (s *staticSchema) Name() string    { return s.name }
func (s *staticSchema) Comment() string { return s.comment }

func (s *staticSchema) Tables(ctx context.Context) ([]Table, error) {
	out := make([]Table, len(s.tables))
	for i, t := range s.tables {
		out[i] = t.table
	}
	return out, nil
}

func (s *staticSchema) Table(ctx context.Context, name string) (Table, error) {
	i, found := slices.BinarySearchFunc(s.tables, name, func(t namedTable, name string) int {
		return cmp.Compare(t.key, name)
	})
	if !found {
		return nil, nil
	}
	return s.tables[i].table, nil
}

func (s *staticSchema) TableFunctions(ctx context.Context) ([]TableFunction, error) {
	return slices.Clone(s.functions), nil
}

func (s *staticSchema) TableFunction(ctx context.Context, name string) (TableFunction, error) {
	for _, fn := range s.functions {
		if strings.EqualFold(fn.Name(), name) {
			return fn, nil
		}
	}
	return nil, nil
}

// StaticTable is a table whose rows come from a ScanFunc.
type StaticTable struct {
	name     string
	comment  string
	schema   *arrow.Schema
	scanFunc ScanFunc
}

// NewStaticTable creates a static table.
func NewStaticTable(name, comment string, schema *arrow.Schema, scanFunc ScanFunc) *StaticTable {
	return &StaticTable{
		name:     name,
		comment:  comment,
		schema:   schema,
		scanFunc: scanFunc,
	}
}

func (t *StaticTable) Name() string               { return t.name }
func (t *StaticTable) Comment() string            { return t.comment }
func (t *StaticTable) ArrowSchema() *arrow.Schema { return t.schema }

// Scan calls the scan function with non-nil options. Requested columns must
// exist in the table schema.
func (t *StaticTable) Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}
	if _, err := ColumnIndices(t.schema, opts.Columns); err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.name, err)
	}
	return t.scanFunc(ctx, opts)
}
