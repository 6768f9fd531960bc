package source

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 16 << 20

// jsonReader reads files holding one JSON object per line.
type jsonReader struct {
	file    *textFile
	scanner *bufio.Scanner
	line    int
}

func newJSONReader(path string, options map[string]string) (recordReader, error) {
	file, err := openText(path, options)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &jsonReader{file: file, scanner: scanner}, nil
}

func (r *jsonReader) next() (*Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, fmt.Errorf("line %d: invalid JSON", r.line)
		}

		doc := gjson.ParseBytes(line)
		if !doc.IsObject() {
			return nil, fmt.Errorf("line %d: expected JSON object, got %s", r.line, doc.Type)
		}
		return &Record{Attributes: jsonAttributes(doc)}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *jsonReader) close() error {
	return r.file.Close()
}

// jsonAttributes converts object members in document order.
// Nested objects and arrays are kept as their raw JSON text.
func jsonAttributes(doc gjson.Result) []Attribute {
	var attrs []Attribute
	doc.ForEach(func(key, value gjson.Result) bool {
		attrs = append(attrs, Attribute{Name: key.String(), Value: jsonValue(value)})
		return true
	})
	return attrs
}

func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return v.Float()
	case gjson.String:
		return v.String()
	default:
		return v.Raw
	}
}
