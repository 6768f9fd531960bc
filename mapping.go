package filetable

import (
	"context"
	"fmt"
	"maps"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
	"github.com/hugr-lab/filetable/source"
)

// MappingDef defines a named table over files, the equivalent of
//
//	CREATE MAPPING users (id INT, name VARCHAR EXTERNAL NAME "full_name")
//	TYPE File OPTIONS ('format' = 'csv', 'path' = '/data', 'glob' = 'users.csv')
//
// Used with SchemaBuilder.Mapping().
type MappingDef struct {
	// Name is the table name.
	// REQUIRED: MUST be non-empty and unique within schema.
	Name string

	// Comment is optional table documentation.
	Comment string

	// Format is one of "csv", "json", "avro", "parquet".
	// OPTIONAL: Taken from Options["format"] when empty.
	Format string

	// Fields declares the columns. When empty, fields are inferred from one
	// sampled record at Build time.
	Fields []file.MappingField

	// Options holds path (required), glob, sharedFileSystem and the nested
	// format options map.
	Options map[string]any
}

// mappingTable is a catalog table backed by files.
type mappingTable struct {
	name     string
	comment  string
	meta     *file.Metadata
	schema   *arrow.Schema
	settings settings
}

var _ catalog.Table = (*mappingTable)(nil)

// resolveMapping validates def and resolves its metadata, sampling the source
// only when no fields are declared.
func resolveMapping(ctx context.Context, s settings, resolvers map[string]file.MetadataResolver, def MappingDef) (*mappingTable, error) {
	values := maps.Clone(def.Options)
	if values == nil {
		values = map[string]any{}
	}
	if def.Format != "" {
		values[file.OptionFormat] = def.Format
	}

	options, err := file.NewOptions(values)
	if err != nil {
		return nil, err
	}

	format, _ := options[file.OptionFormat].(string)
	resolver, ok := resolvers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", source.ErrUnsupportedFormat, format)
	}

	fields, err := resolver.ResolveAndValidateFields(ctx, def.Fields, options)
	if err != nil {
		return nil, err
	}
	meta, err := resolver.ResolveMetadata(fields, options)
	if err != nil {
		return nil, err
	}

	return &mappingTable{
		name:     def.Name,
		comment:  def.Comment,
		meta:     meta,
		schema:   meta.Schema(),
		settings: s,
	}, nil
}

func (t *mappingTable) Name() string {
	return t.name
}

func (t *mappingTable) Comment() string {
	return t.comment
}

func (t *mappingTable) ArrowSchema() *arrow.Schema {
	return t.schema
}

func (t *mappingTable) Scan(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
	return scanFiles(ctx, t.settings, t.meta, opts)
}
