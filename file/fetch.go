package file

import (
	"context"

	"github.com/hugr-lab/filetable/source"
)

// FetchRecord reads at most one record from the source described by opts.
// A nil record with a nil error means the source is empty.
// The scan is always closed before FetchRecord returns.
func FetchRecord(ctx context.Context, opener source.Opener, opts source.Options) (rec *source.Record, err error) {
	scan, err := opener.Open(ctx, opts)
	if err != nil {
		return nil, ioFailure(opts, err)
	}
	defer func() {
		if closeErr := scan.Close(); closeErr != nil && err == nil {
			rec, err = nil, ioFailure(opts, closeErr)
		}
	}()

	rec, err = scan.Next()
	if err != nil {
		return nil, ioFailure(opts, err)
	}
	return rec, nil
}

func ioFailure(opts source.Options, err error) error {
	return &SchemaDiscoveryError{
		Kind:   ErrIOFailure,
		Format: opts.Format,
		Path:   opts.Path,
		Err:    err,
	}
}
