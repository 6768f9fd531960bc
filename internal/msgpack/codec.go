// Package msgpack reads and writes the MessagePack form of call-site arguments
// forwarded by remote front-ends.
package msgpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmpty is returned by Unmarshal for an empty payload.
var ErrEmpty = errors.New("empty MessagePack payload")

// Unmarshal decodes a single value from data into v. Values decoded into
// interfaces use int64, uint64 and float64 for numbers and map[string]any for
// maps. Bytes after the first value are an error.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("msgpack: decode: %w", err)
	}
	if _, err := dec.PeekCode(); !errors.Is(err, io.EOF) {
		return errors.New("msgpack: trailing data after value")
	}
	return nil
}

// Marshal encodes v with sorted map keys, so equal values encode identically.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("msgpack: encode: %w", err)
	}
	return buf.Bytes(), nil
}
