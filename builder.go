package filetable

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
)

// SimpleTableDef defines a table with fixed schema.
// Used with SchemaBuilder.SimpleTable().
type SimpleTableDef struct {
	// Name is the table name (e.g., "users", "orders").
	// REQUIRED: MUST be non-empty and unique within schema.
	Name string

	// Comment is optional table documentation.
	Comment string

	// Schema is the Arrow schema describing table columns.
	// REQUIRED: MUST NOT be nil.
	Schema *arrow.Schema

	// ScanFunc provides table data as RecordReader.
	// REQUIRED: MUST NOT be nil.
	ScanFunc catalog.ScanFunc
}

// CatalogBuilder builds static catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	config  Config
	schemas []*schemaBuilder
	built   bool
}

// NewCatalogBuilder creates a catalog builder. cfg configures mapping tables
// and file functions added to the catalog.
//
// Example:
//
//	cat, err := filetable.NewCatalogBuilder(filetable.Config{}).
//	    Schema("main").
//	        FileFunctions().
//	        Mapping(filetable.MappingDef{
//	            Name:    "users",
//	            Format:  "csv",
//	            Options: map[string]any{"path": "/data", "glob": "users.csv"},
//	        }).
//	    Build(ctx)
func NewCatalogBuilder(cfg Config) *CatalogBuilder {
	return &CatalogBuilder{config: cfg}
}

// Schema starts defining a new schema.
// Schema name MUST be non-empty and unique within catalog.
func (cb *CatalogBuilder) Schema(name string) *SchemaBuilder {
	sb := &schemaBuilder{
		name:           name,
		catalogBuilder: cb,
	}
	cb.schemas = append(cb.schemas, sb)
	return &SchemaBuilder{builder: sb}
}

// Build validates the definitions, resolves mapping tables and returns an
// immutable catalog. Mapping tables without declared fields sample their source.
// Can only be called once.
func (cb *CatalogBuilder) Build(ctx context.Context) (catalog.Catalog, error) {
	if cb.built {
		return nil, errors.New("catalog already built")
	}

	if err := cb.validate(); err != nil {
		return nil, err
	}

	s, err := newSettings(cb.config)
	if err != nil {
		return nil, err
	}
	resolvers := file.Resolvers(s.opener, s.logger)

	var fileFuncs *FunctionTable

	cat := catalog.NewStaticCatalog()
	for _, sb := range cb.schemas {
		tables := make(map[string]catalog.Table, len(sb.tables)+len(sb.mappings))
		for _, def := range sb.tables {
			tables[def.Name] = catalog.NewStaticTable(def.Name, def.Comment, def.Schema, def.ScanFunc)
		}

		for _, def := range sb.mappings {
			table, err := resolveMapping(ctx, s, resolvers, def)
			if err != nil {
				return nil, fmt.Errorf("mapping %s.%s: %w", sb.name, def.Name, err)
			}
			tables[def.Name] = table
			s.logger.Debug("Resolved mapping",
				"schema", sb.name,
				"table", def.Name,
				"format", table.meta.Format,
				"fields", len(table.meta.Fields),
			)
		}

		tableFuncs := sb.tableFuncs
		if sb.fileFunctions {
			if fileFuncs == nil {
				fileFuncs = newFunctionTable(s)
			}
			tableFuncs = append(fileFuncs.TableFunctions(), tableFuncs...)
		}

		cat.AddSchema(sb.name, sb.comment, tables, tableFuncs)
	}

	cb.built = true
	return cat, nil
}

func (cb *CatalogBuilder) validate() error {
	seenSchemas := make(map[string]bool)
	for _, sb := range cb.schemas {
		if sb.name == "" {
			return errors.New("schema name cannot be empty")
		}
		if seenSchemas[sb.name] {
			return fmt.Errorf("schema %s: %w", sb.name, catalog.ErrAlreadyExists)
		}
		seenSchemas[sb.name] = true

		tableNames := make(map[string]bool)
		addTable := func(name string) error {
			if name == "" {
				return fmt.Errorf("table name cannot be empty in schema %s", sb.name)
			}
			if tableNames[name] {
				return fmt.Errorf("table %s.%s: %w", sb.name, name, catalog.ErrAlreadyExists)
			}
			tableNames[name] = true
			return nil
		}

		for _, table := range sb.tables {
			if err := addTable(table.Name); err != nil {
				return err
			}
			if table.Schema == nil {
				return fmt.Errorf("table %s.%s has nil schema", sb.name, table.Name)
			}
			if table.ScanFunc == nil {
				return fmt.Errorf("table %s.%s has nil scan function", sb.name, table.Name)
			}
		}
		for _, mapping := range sb.mappings {
			if err := addTable(mapping.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// SchemaBuilder builds a schema within a catalog.
// Not thread-safe - use only during initialization.
type SchemaBuilder struct {
	builder *schemaBuilder
}

type schemaBuilder struct {
	name           string
	comment        string
	tables         []SimpleTableDef
	mappings       []MappingDef
	tableFuncs     []catalog.TableFunction
	fileFunctions  bool
	catalogBuilder *CatalogBuilder
}

// Comment sets optional schema documentation.
func (sb *SchemaBuilder) Comment(comment string) *SchemaBuilder {
	sb.builder.comment = comment
	return sb
}

// SimpleTable adds a table with fixed schema.
func (sb *SchemaBuilder) SimpleTable(def SimpleTableDef) *SchemaBuilder {
	sb.builder.tables = append(sb.builder.tables, def)
	return sb
}

// Mapping adds a file-backed table, resolved at Build.
func (sb *SchemaBuilder) Mapping(def MappingDef) *SchemaBuilder {
	sb.builder.mappings = append(sb.builder.mappings, def)
	return sb
}

// TableFunc adds a table-valued function to this schema.
func (sb *SchemaBuilder) TableFunc(fn catalog.TableFunction) *SchemaBuilder {
	sb.builder.tableFuncs = append(sb.builder.tableFuncs, fn)
	return sb
}

// FileFunctions adds CSV_FILE, JSONL_FILE, AVRO_FILE and PARQUET_FILE to this
// schema, configured like the catalog builder.
func (sb *SchemaBuilder) FileFunctions() *SchemaBuilder {
	sb.builder.fileFunctions = true
	return sb
}

// Schema starts a new schema definition.
// Allows chaining: Schema("a").Mapping(...).Schema("b").Mapping(...)
func (sb *SchemaBuilder) Schema(name string) *SchemaBuilder {
	return sb.builder.catalogBuilder.Schema(name)
}

// Build finalizes the catalog. Same as calling CatalogBuilder.Build().
func (sb *SchemaBuilder) Build(ctx context.Context) (catalog.Catalog, error) {
	return sb.builder.catalogBuilder.Build(ctx)
}
