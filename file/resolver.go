// Package file resolves the schema of file-backed tables.
//
// A MetadataResolver exists per file format. When the caller declares fields they are
// validated and used as given; otherwise one record is sampled from the source and a
// field is inferred for each of its attributes, in source order.
package file

import (
	"context"
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"

	"github.com/hugr-lab/filetable/source"
)

// Arrow metadata keys attached by Metadata.Schema.
const (
	MetadataExternalName = "external_name"
	MetadataFormat       = "format"
)

// MetadataResolver resolves fields and table metadata for one file format.
type MetadataResolver interface {
	// SupportedFormat returns the format tag handled by the resolver.
	SupportedFormat() string

	// ResolveAndValidateFields validates userFields, or infers fields from a sampled
	// record when userFields is empty.
	ResolveAndValidateFields(ctx context.Context, userFields []MappingField, options Options) ([]MappingField, error)

	// ResolveMetadata attaches the format and scan options to resolved fields.
	ResolveMetadata(fields []MappingField, options Options) (*Metadata, error)
}

// Metadata describes a resolved file table.
type Metadata struct {
	Format string
	Fields []TableField
	Source source.Options
}

// Schema returns the row type. Every column is nullable.
func (m *Metadata) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(m.Fields))
	for i, f := range m.Fields {
		fields[i] = arrow.Field{
			Name:     f.Name,
			Type:     f.Type,
			Nullable: true,
			Metadata: arrow.NewMetadata([]string{MetadataExternalName}, []string{f.ExternalName}),
		}
	}
	md := arrow.NewMetadata([]string{MetadataFormat}, []string{m.Format})
	return arrow.NewSchema(fields, &md)
}

// SchemaFields reverses Metadata.Schema: it returns the fields of a resolved
// schema and the format recorded in its metadata.
func SchemaFields(schema *arrow.Schema) ([]MappingField, string) {
	fields := make([]MappingField, schema.NumFields())
	for i, f := range schema.Fields() {
		fields[i] = MappingField{Name: f.Name, Type: f.Type}
		if ext, ok := f.Metadata.GetValue(MetadataExternalName); ok && ext != f.Name {
			fields[i].ExternalName = ext
		}
	}
	format, _ := schema.Metadata().GetValue(MetadataFormat)
	return fields, format
}

// Resolvers returns a resolver for each supported format keyed by format tag.
func Resolvers(opener source.Opener, logger *slog.Logger) map[string]MetadataResolver {
	return map[string]MetadataResolver{
		source.FormatCSV:     NewCSV(opener, logger),
		source.FormatJSON:    NewJSONL(opener, logger),
		source.FormatAvro:    NewAvro(opener, logger),
		source.FormatParquet: NewParquet(opener, logger),
	}
}

// inferFunc builds fields from a sampled record.
type inferFunc func(rec *source.Record) ([]MappingField, error)

// resolver holds the behavior shared by all formats.
type resolver struct {
	format string
	opener source.Opener
	logger *slog.Logger
	infer  inferFunc
}

func newResolver(format string, opener source.Opener, logger *slog.Logger, infer inferFunc) resolver {
	if opener == nil {
		opener = source.NewLocalOpener(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return resolver{format: format, opener: opener, logger: logger, infer: infer}
}

func (r *resolver) SupportedFormat() string {
	return r.format
}

func (r *resolver) ResolveAndValidateFields(ctx context.Context, userFields []MappingField, options Options) ([]MappingField, error) {
	if len(userFields) > 0 {
		if err := validateFields(userFields); err != nil {
			return nil, err
		}
		return userFields, nil
	}

	opts, err := options.Source(r.format)
	if err != nil {
		return nil, err
	}

	resolutionID := uuid.NewString()
	r.logger.Debug("Sampling file source",
		"resolution_id", resolutionID,
		"format", r.format,
		"path", opts.Path,
		"glob", opts.Glob,
	)

	rec, err := FetchRecord(ctx, r.opener, opts)
	if err != nil {
		r.logger.Debug("Sampling failed", "resolution_id", resolutionID, "error", err)
		return nil, err
	}
	if rec == nil {
		return nil, &SchemaDiscoveryError{Kind: ErrEmptySource, Format: r.format, Path: opts.Path}
	}

	fields, err := r.infer(rec)
	if err == nil {
		err = checkUniqueNames(fields)
	}
	if err != nil {
		if de, ok := err.(*SchemaDiscoveryError); ok {
			de.Format, de.Path = r.format, opts.Path
		}
		return nil, err
	}

	r.logger.Debug("Inferred fields", "resolution_id", resolutionID, "fields", len(fields))
	return fields, nil
}

func (r *resolver) ResolveMetadata(fields []MappingField, options Options) (*Metadata, error) {
	opts, err := options.Source(r.format)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Format: r.format,
		Fields: ToTableFields(fields),
		Source: opts,
	}, nil
}

// inferByValue infers every attribute from its declared type, falling back to its value.
func inferByValue(rec *source.Record) ([]MappingField, error) {
	fields := make([]MappingField, len(rec.Attributes))
	for i, attr := range rec.Attributes {
		typ := attr.Type
		if typ == nil {
			var ok bool
			if typ, ok = inferType(attr.Value); !ok {
				return nil, &SchemaDiscoveryError{Kind: ErrUnsupportedAttribute, Attribute: attr.Name}
			}
		}
		fields[i] = MappingField{Name: attr.Name, Type: typ}
	}
	return fields, nil
}

// checkUniqueNames rejects sampled records that repeat an attribute name, such as a
// CSV header with two equal columns.
func checkUniqueNames(fields []MappingField) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f.Name]; ok {
			return &SchemaDiscoveryError{
				Kind:      ErrUnsupportedAttribute,
				Attribute: f.Name,
				Err:       errors.New("attribute name occurs more than once"),
			}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
