package file

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filetable/source"
)

// CSV resolves CSV tables. Raw text has no schema, so every inferred column is VARCHAR.
type CSV struct {
	resolver
}

// NewCSV creates the CSV resolver. A nil opener reads local files.
func NewCSV(opener source.Opener, logger *slog.Logger) *CSV {
	return &CSV{resolver: newResolver(source.FormatCSV, opener, logger, inferCSV)}
}

func inferCSV(rec *source.Record) ([]MappingField, error) {
	fields := make([]MappingField, len(rec.Attributes))
	for i, attr := range rec.Attributes {
		fields[i] = MappingField{Name: attr.Name, Type: arrow.BinaryTypes.String}
	}
	return fields, nil
}

// JSONL resolves JSON-lines tables. Numbers infer DOUBLE, booleans BOOLEAN; strings,
// nulls, objects and arrays infer VARCHAR.
type JSONL struct {
	resolver
}

// NewJSONL creates the JSON-lines resolver. A nil opener reads local files.
func NewJSONL(opener source.Opener, logger *slog.Logger) *JSONL {
	return &JSONL{resolver: newResolver(source.FormatJSON, opener, logger, inferByValue)}
}

// Avro resolves Avro tables from the writer schema of the sampled file.
type Avro struct {
	resolver
}

// NewAvro creates the Avro resolver. A nil opener reads local files.
func NewAvro(opener source.Opener, logger *slog.Logger) *Avro {
	return &Avro{resolver: newResolver(source.FormatAvro, opener, logger, inferByValue)}
}

// Parquet resolves Parquet tables from the file schema of the sampled file.
type Parquet struct {
	resolver
}

// NewParquet creates the Parquet resolver. A nil opener reads local files.
func NewParquet(opener source.Opener, logger *slog.Logger) *Parquet {
	return &Parquet{resolver: newResolver(source.FormatParquet, opener, logger, inferByValue)}
}
