package source

import (
	"fmt"
	"math/big"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/linkedin/goavro/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// avroField is a top-level field of the writer schema.
type avroField struct {
	name string
	typ  arrow.DataType

	// scale is set for decimal fields, which goavro decodes as *big.Rat.
	scale   int32
	decimal bool
}

// avroReader reads Avro object container files.
type avroReader struct {
	file   *os.File
	ocf    *goavro.OCFReader
	fields []avroField
}

func newAvroReader(path string) (recordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	ocf, err := goavro.NewOCFReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open Avro container: %w", err)
	}

	fields, err := avroSchemaFields(ocf.Codec().Schema())
	if err != nil {
		f.Close()
		return nil, err
	}

	return &avroReader{file: f, ocf: ocf, fields: fields}, nil
}

func (r *avroReader) next() (*Record, error) {
	if !r.ocf.Scan() {
		return nil, r.ocf.Err()
	}

	datum, err := r.ocf.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read Avro record: %w", err)
	}
	native, ok := datum.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected Avro record, got %T", datum)
	}

	attrs := make([]Attribute, len(r.fields))
	for i, field := range r.fields {
		v := unwrapUnion(native[field.name])
		if rat, ok := v.(*big.Rat); ok && field.decimal {
			v = ratDecimal(rat, field.scale)
		}
		attrs[i] = Attribute{Name: field.name, Value: v, Type: field.typ}
	}
	return &Record{Attributes: attrs}, nil
}

func (r *avroReader) close() error {
	return r.file.Close()
}

// avroSchemaFields lists the top-level record fields in schema order.
func avroSchemaFields(schema string) ([]avroField, error) {
	root := gjson.Parse(schema)
	if root.Get("type").String() != "record" {
		return nil, fmt.Errorf("writer schema is not a record: %s", root.Get("type").Raw)
	}

	var fields []avroField
	root.Get("fields").ForEach(func(_, field gjson.Result) bool {
		f := avroField{
			name: field.Get("name").String(),
			typ:  avroType(field.Get("type")),
		}
		if decl := nonNullBranch(field.Get("type")); decl.Get("logicalType").String() == "decimal" {
			f.scale, f.decimal = int32(decl.Get("scale").Int()), true
		}
		fields = append(fields, f)
		return true
	})
	return fields, nil
}

// nonNullBranch returns T for a ["null", T] union and t itself otherwise. Unions
// with more than one non-null branch yield an empty result.
func nonNullBranch(t gjson.Result) gjson.Result {
	if !t.IsArray() {
		return t
	}
	var branch gjson.Result
	branches := 0
	for _, b := range t.Array() {
		if b.Type == gjson.String && b.String() == "null" {
			continue
		}
		branch = b
		branches++
	}
	if branches != 1 {
		return gjson.Result{}
	}
	return branch
}

// avroType maps an Avro type declaration to Arrow. Complex types and decimals
// wider than Decimal128 map to nil.
func avroType(t gjson.Result) arrow.DataType {
	switch {
	case t.IsArray():
		// Only ["null", T] unions carry a usable type.
		branch := nonNullBranch(t)
		if !branch.Exists() {
			return nil
		}
		return avroType(branch)
	case t.IsObject():
		switch t.Get("logicalType").String() {
		case "decimal":
			precision := int32(t.Get("precision").Int())
			if precision < 1 || precision > maxDecimalPrecision {
				return nil
			}
			return &arrow.Decimal128Type{Precision: precision, Scale: int32(t.Get("scale").Int())}
		case "timestamp-millis":
			return arrow.FixedWidthTypes.Timestamp_ms
		case "timestamp-micros":
			return arrow.FixedWidthTypes.Timestamp_us
		case "date":
			return arrow.FixedWidthTypes.Date32
		}
		return avroPrimitive(t.Get("type").String())
	default:
		return avroPrimitive(t.String())
	}
}

func avroPrimitive(name string) arrow.DataType {
	switch name {
	case "boolean":
		return arrow.FixedWidthTypes.Boolean
	case "int":
		return arrow.PrimitiveTypes.Int32
	case "long":
		return arrow.PrimitiveTypes.Int64
	case "float":
		return arrow.PrimitiveTypes.Float32
	case "double":
		return arrow.PrimitiveTypes.Float64
	case "string":
		return arrow.BinaryTypes.String
	case "bytes":
		return arrow.BinaryTypes.Binary
	default:
		return nil
	}
}

// unwrapUnion strips the {"branch": value} wrapper of a non-null union value.
func unwrapUnion(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	for branch, inner := range m {
		switch branch {
		case "boolean", "int", "long", "float", "double", "string", "bytes",
			"long.timestamp-millis", "long.timestamp-micros", "int.date", "bytes.decimal":
			return inner
		}
		// Named fixed decimals are keyed by the fixed type name.
		if rat, ok := inner.(*big.Rat); ok {
			return rat
		}
	}
	return v
}

// ratDecimal converts a decoded Avro decimal to a decimal of the declared scale.
func ratDecimal(r *big.Rat, scale int32) decimal.Decimal {
	unscaled := new(big.Int).Mul(r.Num(), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))
	return decimal.NewFromBigInt(unscaled.Quo(unscaled, r.Denom()), -scale)
}
