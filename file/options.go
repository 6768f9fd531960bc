package file

import (
	"fmt"
	"maps"
	"strings"

	"github.com/hugr-lab/filetable/source"
)

// Well-known option keys.
const (
	OptionPath             = "path"
	OptionGlob             = "glob"
	OptionSharedFileSystem = "sharedFileSystem"
	OptionOptions          = "options"
	OptionFormat           = "format"
)

// Options is the options map configuring a file table. Unknown keys are kept and
// ignored by the resolvers.
type Options map[string]any

// NewOptions validates values and returns a copy usable by the resolvers.
// path is required; glob, sharedFileSystem and format must be strings when present;
// options must be a string map.
func NewOptions(values map[string]any) (Options, error) {
	opts := make(Options, len(values))
	for k, v := range values {
		opts[k] = v
	}

	path, err := opts.stringValue(OptionPath)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %q is required", ErrInvalidOption, OptionPath)
	}
	for _, key := range []string{OptionGlob, OptionFormat} {
		if _, err := opts.stringValue(key); err != nil {
			return nil, err
		}
	}

	switch v := opts[OptionSharedFileSystem].(type) {
	case nil, string, bool:
	default:
		return nil, fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidOption, OptionSharedFileSystem, v)
	}

	switch v := opts[OptionOptions].(type) {
	case nil:
	case map[string]string:
		opts[OptionOptions] = maps.Clone(v)
	default:
		return nil, fmt.Errorf("%w: %q must be a string map, got %T", ErrInvalidOption, OptionOptions, v)
	}

	return opts, nil
}

func (o Options) stringValue(key string) (string, error) {
	switch v := o[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidOption, key, v)
	}
}

// SharedFileSystem parses the sharedFileSystem option. Only a case-insensitive "true"
// enables it.
func (o Options) SharedFileSystem() bool {
	switch v := o[OptionSharedFileSystem].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// FileOptions returns a copy of the nested format options.
func (o Options) FileOptions() map[string]string {
	m, _ := o[OptionOptions].(map[string]string)
	return maps.Clone(m)
}

// Source builds scan options for format.
func (o Options) Source(format string) (source.Options, error) {
	path, err := o.stringValue(OptionPath)
	if err != nil {
		return source.Options{}, err
	}
	glob, err := o.stringValue(OptionGlob)
	if err != nil {
		return source.Options{}, err
	}

	opts := source.Options{
		Format:           format,
		Path:             path,
		Glob:             glob,
		SharedFileSystem: o.SharedFileSystem(),
		FileOptions:      o.FileOptions(),
	}
	if err := opts.Validate(); err != nil {
		return source.Options{}, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	return opts, nil
}
