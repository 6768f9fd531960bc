package filetable

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/filetable/argument"
	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
)

// fileParameters are the parameters shared by all file table functions.
var fileParameters = []argument.Parameter{
	{Ordinal: 0, Name: file.OptionPath},
	{Ordinal: 1, Name: file.OptionGlob, Optional: true},
	{Ordinal: 2, Name: file.OptionSharedFileSystem, Optional: true},
	{Ordinal: 3, Name: file.OptionOptions, Optional: true},
}

// CompileError reports a table function call whose row type cannot be resolved.
// errors.Is matches the underlying argument, option and discovery errors.
type CompileError struct {
	Function string
	Err      error
}

func (e *CompileError) Error() string {
	var argErr *argument.InvalidArgumentError
	if errors.As(e.Err, &argErr) {
		return argErr.Error()
	}
	return fmt.Sprintf("%s: %v", e.Function, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// FileTableFunction reads files of one format, e.g.
//
//	SELECT * FROM TABLE(CSV_FILE(path => '/data', glob => 'users*.csv', options => MAP['delimiter', ';']))
//
// The row type is inferred from the first record of the matched files.
type FileTableFunction struct {
	name     string
	comment  string
	resolver file.MetadataResolver
	settings settings
}

var _ catalog.TableFunction = (*FileTableFunction)(nil)

func newFileTableFunction(name, comment string, resolver file.MetadataResolver, s settings) *FileTableFunction {
	return &FileTableFunction{
		name:     name,
		comment:  comment,
		resolver: resolver,
		settings: s,
	}
}

// Name implements catalog.TableFunction.
func (f *FileTableFunction) Name() string {
	return f.name
}

// Comment implements catalog.TableFunction.
func (f *FileTableFunction) Comment() string {
	return f.comment
}

// Format returns the format tag read by the function.
func (f *FileTableFunction) Format() string {
	return f.resolver.SupportedFormat()
}

// Parameters implements catalog.TableFunction.
func (f *FileTableFunction) Parameters() []argument.Parameter {
	return slices.Clone(fileParameters)
}

// RowType implements catalog.TableFunction. It samples one record when the
// source has to be inspected.
func (f *FileTableFunction) RowType(ctx context.Context, operands []argument.Node) (*arrow.Schema, error) {
	meta, err := f.resolve(ctx, operands)
	if err != nil {
		return nil, err
	}
	return meta.Schema(), nil
}

// Execute implements catalog.TableFunction. With opts.RowType set the files are
// read with the planned row type and are not sampled again.
func (f *FileTableFunction) Execute(ctx context.Context, operands []argument.Node, opts *catalog.ScanOptions) (array.RecordReader, error) {
	var planned []file.MappingField
	if opts != nil && opts.RowType != nil {
		fields, format := file.SchemaFields(opts.RowType)
		if format != f.Format() {
			return nil, fmt.Errorf("%w: row type was planned for format %q, %s reads %q", ErrInvalidScan, format, f.name, f.Format())
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: planned row type has no columns", ErrInvalidScan)
		}
		planned = fields
	}

	meta, err := f.resolveFields(ctx, operands, planned)
	if err != nil {
		return nil, err
	}
	return scanFiles(ctx, f.settings, meta, opts)
}

// resolve turns the call operands into the table metadata.
func (f *FileTableFunction) resolve(ctx context.Context, operands []argument.Node) (*file.Metadata, error) {
	return f.resolveFields(ctx, operands, nil)
}

// resolveFields resolves the call with declared fields; nil fields are inferred.
func (f *FileTableFunction) resolveFields(ctx context.Context, operands []argument.Node, declared []file.MappingField) (*file.Metadata, error) {
	values, err := f.arguments(operands)
	if err != nil {
		return nil, &CompileError{Function: f.name, Err: err}
	}

	options, err := file.NewOptions(values)
	if err != nil {
		return nil, &CompileError{Function: f.name, Err: err}
	}

	fields, err := f.resolver.ResolveAndValidateFields(ctx, declared, options)
	if err != nil {
		return nil, &CompileError{Function: f.name, Err: err}
	}

	meta, err := f.resolver.ResolveMetadata(fields, options)
	if err != nil {
		return nil, &CompileError{Function: f.name, Err: err}
	}
	return meta, nil
}

// arguments extracts the operands into an options map. Omitted trailing operands
// are DEFAULT; a NULL options argument becomes an empty map.
func (f *FileTableFunction) arguments(operands []argument.Node) (map[string]any, error) {
	if len(operands) < len(fileParameters) {
		padded := make([]argument.Node, len(fileParameters))
		copy(padded, operands)
		for i := len(operands); i < len(padded); i++ {
			padded[i] = argument.Default()
		}
		operands = padded
	}

	values, err := argument.Extract(f.name, fileParameters, operands)
	if err != nil {
		return nil, err
	}

	options := make(map[string]any, len(values))
	for i, param := range fileParameters {
		v := values[i].Native()
		if v == nil {
			if param.Name != file.OptionOptions {
				continue
			}
			v = map[string]string{}
		}
		options[param.Name] = v
	}
	return options, nil
}
