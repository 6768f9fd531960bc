// Package source is the scan layer used for schema discovery and table scans.
//
// The resolvers in package file only depend on the Opener and Scan interfaces; LocalOpener
// is the default implementation reading files from a local (or mounted shared) directory:
//
//	opener := source.NewLocalOpener(slog.Default())
//	scan, err := opener.Open(ctx, source.Options{
//	    Format: source.FormatCSV,
//	    Path:   "/data",
//	    Glob:   "*.csv",
//	})
//	if err != nil {
//	    return err
//	}
//	defer scan.Close()
//
//	for {
//	    rec, err := scan.Next()
//	    if err != nil {
//	        return err
//	    }
//	    if rec == nil {
//	        break // end of data
//	    }
//	    fmt.Println(rec.Names())
//	}
//
// Supported formats are CSV (header row required), JSON lines, Avro object container files
// and Parquet. Text formats may be compressed with zstd or gzip.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Format tags.
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatAvro    = "avro"
	FormatParquet = "parquet"
)

// File option keys understood by LocalOpener. Other keys are ignored.
const (
	OptionDelimiter   = "delimiter"
	OptionCompression = "compression"
)

var (
	// ErrUnsupportedFormat is returned for a format tag without a decoder.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMissingPath is returned when Options.Path is empty.
	ErrMissingPath = errors.New("path is required")
)

// Options configures a scan.
type Options struct {
	// Format is one of the Format* tags.
	Format string

	// Path is the directory holding the files.
	Path string

	// Glob selects files inside Path. Empty means all files.
	Glob string

	// SharedFileSystem reports that all readers see the same files under Path.
	SharedFileSystem bool

	// FileOptions are format-specific options passed through from the caller.
	FileOptions map[string]string
}

// Validate checks that the options can be used to open a scan.
func (o Options) Validate() error {
	if o.Path == "" {
		return ErrMissingPath
	}
	switch o.Format {
	case FormatCSV, FormatJSON, FormatAvro, FormatParquet:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, o.Format)
	}
}

// Attribute is a named value of a record.
type Attribute struct {
	Name  string
	Value any

	// Type is the type declared by the source schema, nil if the format has no schema
	// or the declared type has no Arrow counterpart.
	Type arrow.DataType
}

// Record is one record read from a source. Attributes keep source order.
type Record struct {
	Attributes []Attribute
}

// Names returns attribute names in source order.
func (r *Record) Names() []string {
	names := make([]string, len(r.Attributes))
	for i, a := range r.Attributes {
		names[i] = a.Name
	}
	return names
}

// Value returns the value of the named attribute.
func (r *Record) Value(name string) (any, bool) {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Scan iterates over records. Scans are not safe for concurrent use.
type Scan interface {
	// Next returns the next record, or (nil, nil) when the source is exhausted.
	Next() (*Record, error)

	// Close releases all resources held by the scan.
	Close() error
}

// Opener opens scans over a source.
type Opener interface {
	Open(ctx context.Context, opts Options) (Scan, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, opts Options) (Scan, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, opts Options) (Scan, error) {
	return f(ctx, opts)
}

// SliceScan is a Scan over in-memory records.
type SliceScan struct {
	Records []*Record
	pos     int
	closed  bool
}

// Next implements Scan.
func (s *SliceScan) Next() (*Record, error) {
	if s.closed {
		return nil, errors.New("scan is closed")
	}
	if s.pos >= len(s.Records) {
		return nil, nil
	}
	rec := s.Records[s.pos]
	s.pos++
	return rec, nil
}

// Close implements Scan.
func (s *SliceScan) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceScan) Closed() bool {
	return s.closed
}
