package filter

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// DECIMAL precision and scale used when a LogicalType has no Width.
const (
	DefaultDecimalWidth = 18
	DefaultDecimalScale = 3
)

// ArrowType maps the logical type to an Arrow type. Types without an Arrow
// counterpart return nil.
func (t LogicalType) ArrowType() arrow.DataType {
	switch t.ID.Normalize() {
	case TypeIDBoolean:
		return arrow.FixedWidthTypes.Boolean
	case TypeIDTinyInt:
		return arrow.PrimitiveTypes.Int8
	case TypeIDSmallInt:
		return arrow.PrimitiveTypes.Int16
	case TypeIDInteger:
		return arrow.PrimitiveTypes.Int32
	case TypeIDBigInt:
		return arrow.PrimitiveTypes.Int64
	case TypeIDUTinyInt:
		return arrow.PrimitiveTypes.Uint8
	case TypeIDUSmallInt:
		return arrow.PrimitiveTypes.Uint16
	case TypeIDUInteger:
		return arrow.PrimitiveTypes.Uint32
	case TypeIDUBigInt:
		return arrow.PrimitiveTypes.Uint64
	case TypeIDFloat:
		return arrow.PrimitiveTypes.Float32
	case TypeIDDouble:
		return arrow.PrimitiveTypes.Float64
	case TypeIDDecimal:
		width, scale := DefaultDecimalWidth, DefaultDecimalScale
		if t.Width > 0 {
			width, scale = t.Width, t.Scale
		}
		return &arrow.Decimal128Type{Precision: int32(width), Scale: int32(scale)}
	case TypeIDVarchar, TypeIDChar:
		return arrow.BinaryTypes.String
	case TypeIDBlob:
		return arrow.BinaryTypes.Binary
	case TypeIDDate:
		return arrow.FixedWidthTypes.Date32
	case TypeIDTime:
		return arrow.FixedWidthTypes.Time64us
	case TypeIDTimestampSec:
		return arrow.FixedWidthTypes.Timestamp_s
	case TypeIDTimestampMs:
		return arrow.FixedWidthTypes.Timestamp_ms
	case TypeIDTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	case TypeIDTimestampNs:
		return arrow.FixedWidthTypes.Timestamp_ns
	case TypeIDTimestampTZ:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	default:
		return nil
	}
}

// LogicalTypeOf maps an Arrow type back to a logical type. Nested and unknown types
// map to TypeIDUnknown.
func LogicalTypeOf(dt arrow.DataType) LogicalType {
	if dt == nil {
		return LogicalType{ID: TypeIDUnknown}
	}
	switch dt.ID() {
	case arrow.BOOL:
		return LogicalType{ID: TypeIDBoolean}
	case arrow.INT8:
		return LogicalType{ID: TypeIDTinyInt}
	case arrow.INT16:
		return LogicalType{ID: TypeIDSmallInt}
	case arrow.INT32:
		return LogicalType{ID: TypeIDInteger}
	case arrow.INT64:
		return LogicalType{ID: TypeIDBigInt}
	case arrow.UINT8:
		return LogicalType{ID: TypeIDUTinyInt}
	case arrow.UINT16:
		return LogicalType{ID: TypeIDUSmallInt}
	case arrow.UINT32:
		return LogicalType{ID: TypeIDUInteger}
	case arrow.UINT64:
		return LogicalType{ID: TypeIDUBigInt}
	case arrow.FLOAT32:
		return LogicalType{ID: TypeIDFloat}
	case arrow.FLOAT64:
		return LogicalType{ID: TypeIDDouble}
	case arrow.DECIMAL128:
		d := dt.(*arrow.Decimal128Type)
		return LogicalType{ID: TypeIDDecimal, Width: int(d.Precision), Scale: int(d.Scale)}
	case arrow.STRING, arrow.LARGE_STRING:
		return LogicalType{ID: TypeIDVarchar}
	case arrow.BINARY, arrow.LARGE_BINARY:
		return LogicalType{ID: TypeIDBlob}
	case arrow.DATE32:
		return LogicalType{ID: TypeIDDate}
	case arrow.TIME32, arrow.TIME64:
		return LogicalType{ID: TypeIDTime}
	case arrow.TIMESTAMP:
		ts := dt.(*arrow.TimestampType)
		if ts.TimeZone != "" {
			return LogicalType{ID: TypeIDTimestampTZ}
		}
		switch ts.Unit {
		case arrow.Second:
			return LogicalType{ID: TypeIDTimestampSec}
		case arrow.Millisecond:
			return LogicalType{ID: TypeIDTimestampMs}
		case arrow.Nanosecond:
			return LogicalType{ID: TypeIDTimestampNs}
		default:
			return LogicalType{ID: TypeIDTimestamp}
		}
	default:
		return LogicalType{ID: TypeIDUnknown}
	}
}
