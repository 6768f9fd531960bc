package source

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"reflect"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// maxDecimalPrecision is the widest DECIMAL an Arrow Decimal128 column holds.
const maxDecimalPrecision = 38

// parquetField is a top-level column of the file schema.
type parquetField struct {
	name string
	typ  arrow.DataType

	// scale is set for DECIMAL columns, whose physical values are unscaled.
	scale   int32
	decimal bool
}

// parquetReader reads Parquet files row by row.
type parquetReader struct {
	file   *os.File
	rows   *parquet.Reader
	fields []parquetField
}

func newParquetReader(path string) (recordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	schemaFields := pqFile.Schema().Fields()
	fields := make([]parquetField, len(schemaFields))
	for i, field := range schemaFields {
		fields[i] = parquetField{name: field.Name(), typ: parquetType(field)}
		if lt := field.Type().LogicalType(); field.Leaf() && lt != nil && lt.Decimal != nil {
			fields[i].scale, fields[i].decimal = lt.Decimal.Scale, true
		}
	}

	return &parquetReader{
		file:   f,
		rows:   parquet.NewReader(pqFile),
		fields: fields,
	}, nil
}

func (r *parquetReader) next() (*Record, error) {
	row := make(map[string]any)
	if err := r.rows.Read(&row); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	attrs := make([]Attribute, len(r.fields))
	for i, field := range r.fields {
		v := row[field.name]
		var err error
		if field.decimal {
			v, err = parquetDecimal(v, field.scale)
		} else {
			v, err = parquetValue(v, field.typ)
		}
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.name, err)
		}
		attrs[i] = Attribute{Name: field.name, Value: v, Type: field.typ}
	}
	return &Record{Attributes: attrs}, nil
}

func (r *parquetReader) close() error {
	rowsErr := r.rows.Close()
	if err := r.file.Close(); err != nil {
		return err
	}
	return rowsErr
}

// parquetType maps a column to Arrow. Groups, repeated columns, DECIMAL wider than
// Decimal128 and types without an Arrow counterpart map to nil.
func parquetType(field parquet.Field) arrow.DataType {
	if !field.Leaf() || field.Repeated() {
		return nil
	}

	if lt := field.Type().LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil, lt.Enum != nil, lt.Json != nil:
			return arrow.BinaryTypes.String
		case lt.Date != nil:
			return arrow.FixedWidthTypes.Date32
		case lt.Timestamp != nil:
			switch unit := lt.Timestamp.Unit; {
			case unit.Millis != nil:
				return arrow.FixedWidthTypes.Timestamp_ms
			case unit.Micros != nil:
				return arrow.FixedWidthTypes.Timestamp_us
			case unit.Nanos != nil:
				return arrow.FixedWidthTypes.Timestamp_ns
			}
			return nil
		case lt.Integer != nil:
			return parquetInteger(lt.Integer.BitWidth, lt.Integer.IsSigned)
		case lt.Decimal != nil:
			if lt.Decimal.Precision < 1 || lt.Decimal.Precision > maxDecimalPrecision {
				return nil
			}
			return &arrow.Decimal128Type{Precision: lt.Decimal.Precision, Scale: lt.Decimal.Scale}
		case lt.Time != nil:
			switch unit := lt.Time.Unit; {
			case unit.Millis != nil:
				return arrow.FixedWidthTypes.Time32ms
			case unit.Micros != nil:
				return arrow.FixedWidthTypes.Time64us
			case unit.Nanos != nil:
				return arrow.FixedWidthTypes.Time64ns
			}
			return nil
		case lt.Bson != nil:
			return arrow.BinaryTypes.Binary
		case lt.UUID != nil:
			return nil
		}
	}

	switch field.Type().Kind() {
	case parquet.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case parquet.Int32:
		return arrow.PrimitiveTypes.Int32
	case parquet.Int64:
		return arrow.PrimitiveTypes.Int64
	case parquet.Float:
		return arrow.PrimitiveTypes.Float32
	case parquet.Double:
		return arrow.PrimitiveTypes.Float64
	case parquet.ByteArray:
		return arrow.BinaryTypes.Binary
	default:
		// INT96 and FIXED_LEN_BYTE_ARRAY
		return nil
	}
}

func parquetInteger(bitWidth int8, signed bool) arrow.DataType {
	switch {
	case bitWidth == 8 && signed:
		return arrow.PrimitiveTypes.Int8
	case bitWidth == 8:
		return arrow.PrimitiveTypes.Uint8
	case bitWidth == 16 && signed:
		return arrow.PrimitiveTypes.Int16
	case bitWidth == 16:
		return arrow.PrimitiveTypes.Uint16
	case bitWidth == 32 && signed:
		return arrow.PrimitiveTypes.Int32
	case bitWidth == 32:
		return arrow.PrimitiveTypes.Uint32
	case signed:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.PrimitiveTypes.Uint64
	}
}

// parquetValue normalizes physical encodings of temporal columns to time.Time and
// time.Duration.
func parquetValue(v any, typ arrow.DataType) (any, error) {
	if typ == nil || v == nil {
		return v, nil
	}

	switch typ.ID() {
	case arrow.DATE32:
		if days, ok := v.(int32); ok {
			return time.Unix(int64(days)*86400, 0).UTC(), nil
		}
	case arrow.TIMESTAMP:
		if raw, ok := v.(int64); ok {
			switch typ.(*arrow.TimestampType).Unit {
			case arrow.Millisecond:
				return time.UnixMilli(raw).UTC(), nil
			case arrow.Microsecond:
				return time.UnixMicro(raw).UTC(), nil
			default:
				return time.Unix(0, raw).UTC(), nil
			}
		}
	case arrow.TIME32:
		if raw, ok := v.(int32); ok {
			return time.Duration(raw) * time.Millisecond, nil
		}
	case arrow.TIME64:
		if raw, ok := v.(int64); ok {
			return time.Duration(raw) * typ.(*arrow.Time64Type).Unit.Multiplier(), nil
		}
	case arrow.STRING:
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
	}
	return v, nil
}

// parquetDecimal scales the physical value of a DECIMAL column: INT32, INT64 or a
// big-endian two's complement byte array.
func parquetDecimal(v any, scale int32) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int32:
		return decimal.New(int64(x), -scale), nil
	case int64:
		return decimal.New(x, -scale), nil
	case []byte:
		return decimal.NewFromBigInt(bigEndianInt(x), -scale), nil
	case string:
		return decimal.NewFromBigInt(bigEndianInt([]byte(x)), -scale), nil
	}

	// FIXED_LEN_BYTE_ARRAY values may arrive as [N]byte.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return decimal.NewFromBigInt(bigEndianInt(b), -scale), nil
	}
	return nil, fmt.Errorf("unexpected DECIMAL encoding %T", v)
}

func bigEndianInt(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}
