package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// recordReader decodes records of a single file.
type recordReader interface {
	next() (*Record, error)
	close() error
}

// LocalOpener opens scans over files in a local directory.
type LocalOpener struct {
	logger *slog.Logger
}

// NewLocalOpener creates a LocalOpener. A nil logger uses slog.Default().
func NewLocalOpener(logger *slog.Logger) *LocalOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalOpener{logger: logger}
}

// Open implements Opener. Files are listed eagerly and opened one at a time as the
// scan advances, so at most one file handle is held at any moment.
func (o *LocalOpener) Open(ctx context.Context, opts Options) (Scan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	files, err := ListFiles(opts.Path, opts.Glob)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("Opened file scan",
		"format", opts.Format,
		"path", opts.Path,
		"glob", opts.Glob,
		"shared_file_system", opts.SharedFileSystem,
		"files", len(files),
	)

	return &fileScan{
		ctx:    ctx,
		opts:   opts,
		files:  files,
		logger: o.logger,
	}, nil
}

// ListFiles returns regular files in dir whose names match glob, in lexical order.
// An empty glob matches every file.
func ListFiles(dir, glob string) ([]string, error) {
	if glob == "" {
		glob = "*"
	}
	if _, err := filepath.Match(glob, ""); err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", glob, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(glob, entry.Name()); ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// fileScan walks the matched files in order.
type fileScan struct {
	ctx     context.Context
	opts    Options
	files   []string
	next    int
	current recordReader
	logger  *slog.Logger
}

// Next implements Scan.
func (s *fileScan) Next() (*Record, error) {
	for {
		if s.current == nil {
			if s.next >= len(s.files) {
				return nil, nil
			}
			if err := s.ctx.Err(); err != nil {
				return nil, err
			}

			path := s.files[s.next]
			s.next++

			reader, err := openRecordReader(s.opts, path)
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", path, err)
			}
			s.current = reader
			s.logger.Debug("Reading file", "file", path, "format", s.opts.Format)
		}

		rec, err := s.current.next()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.files[s.next-1], err)
		}
		if rec != nil {
			return rec, nil
		}

		if err := s.closeCurrent(); err != nil {
			return nil, err
		}
	}
}

// Close implements Scan.
func (s *fileScan) Close() error {
	s.next = len(s.files)
	return s.closeCurrent()
}

func (s *fileScan) closeCurrent() error {
	if s.current == nil {
		return nil
	}
	err := s.current.close()
	s.current = nil
	return err
}

func openRecordReader(opts Options, path string) (recordReader, error) {
	switch opts.Format {
	case FormatCSV:
		return newCSVReader(path, opts.FileOptions)
	case FormatJSON:
		return newJSONReader(path, opts.FileOptions)
	case FormatAvro:
		return newAvroReader(path)
	case FormatParquet:
		return newParquetReader(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
}
