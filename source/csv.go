package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// csvReader reads CSV files with a mandatory header row.
type csvReader struct {
	file   *textFile
	reader *csv.Reader
	header []string
}

func newCSVReader(path string, options map[string]string) (recordReader, error) {
	delimiter := ','
	if d, ok := options[OptionDelimiter]; ok {
		r, size := utf8.DecodeRuneInString(d)
		if r == utf8.RuneError || size != len(d) {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", d)
		}
		delimiter = r
	}

	file, err := openText(path, options)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	return &csvReader{file: file, reader: reader}, nil
}

func (r *csvReader) next() (*Record, error) {
	if r.header == nil {
		header, err := r.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
		r.header = append([]string(nil), header...)
	}

	row, err := r.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV row: %w", err)
	}

	attrs := make([]Attribute, len(r.header))
	for i, name := range r.header {
		attrs[i].Name = name
		// Short rows leave trailing columns NULL.
		if i < len(row) {
			attrs[i].Value = row[i]
		}
	}
	return &Record{Attributes: attrs}, nil
}

func (r *csvReader) close() error {
	return r.file.Close()
}
