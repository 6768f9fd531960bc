package filter

import "strings"

// LogicalTypeID is the SQL name of a type as it appears in serialized plans.
type LogicalTypeID string

// Types a row slot or expression result can have. Rows carry no nested values,
// so list, struct and map types are not represented.
const (
	TypeIDUnknown LogicalTypeID = "UNKNOWN"
	TypeIDAny     LogicalTypeID = "ANY"

	TypeIDBoolean LogicalTypeID = "BOOLEAN"

	TypeIDTinyInt   LogicalTypeID = "TINYINT"
	TypeIDSmallInt  LogicalTypeID = "SMALLINT"
	TypeIDInteger   LogicalTypeID = "INTEGER"
	TypeIDBigInt    LogicalTypeID = "BIGINT"
	TypeIDUTinyInt  LogicalTypeID = "UTINYINT"
	TypeIDUSmallInt LogicalTypeID = "USMALLINT"
	TypeIDUInteger  LogicalTypeID = "UINTEGER"
	TypeIDUBigInt   LogicalTypeID = "UBIGINT"

	TypeIDFloat   LogicalTypeID = "FLOAT"
	TypeIDDouble  LogicalTypeID = "DOUBLE"
	TypeIDDecimal LogicalTypeID = "DECIMAL"

	TypeIDChar    LogicalTypeID = "CHAR"
	TypeIDVarchar LogicalTypeID = "VARCHAR"
	TypeIDBlob    LogicalTypeID = "BLOB"

	TypeIDDate         LogicalTypeID = "DATE"
	TypeIDTime         LogicalTypeID = "TIME"
	TypeIDTimestampSec LogicalTypeID = "TIMESTAMP_SEC"
	TypeIDTimestampMs  LogicalTypeID = "TIMESTAMP_MS"
	TypeIDTimestamp    LogicalTypeID = "TIMESTAMP"
	TypeIDTimestampNs  LogicalTypeID = "TIMESTAMP_NS"
	TypeIDTimestampTZ  LogicalTypeID = "TIMESTAMP_TZ"
)

// Normalize maps spelling variants ("INT8", "TEXT", "TIMESTAMP WITH TIME ZONE")
// to the canonical ID. Unknown names are returned upper-cased.
func (t LogicalTypeID) Normalize() LogicalTypeID {
	name := LogicalTypeID(strings.ToUpper(strings.TrimSpace(string(t))))
	switch name {
	case "BOOL":
		return TypeIDBoolean
	case "INT1":
		return TypeIDTinyInt
	case "INT2":
		return TypeIDSmallInt
	case "INT", "INT4", "SIGNED":
		return TypeIDInteger
	case "INT8", "LONG":
		return TypeIDBigInt
	case "UINT1":
		return TypeIDUTinyInt
	case "UINT2":
		return TypeIDUSmallInt
	case "UINT4":
		return TypeIDUInteger
	case "UINT8":
		return TypeIDUBigInt
	case "REAL", "FLOAT4":
		return TypeIDFloat
	case "FLOAT8":
		return TypeIDDouble
	case "NUMERIC":
		return TypeIDDecimal
	case "STRING", "TEXT":
		return TypeIDVarchar
	case "BYTEA", "BINARY", "VARBINARY":
		return TypeIDBlob
	case "TIMESTAMP_S":
		return TypeIDTimestampSec
	case "DATETIME", "TIMESTAMP_US", "TIMESTAMP WITHOUT TIME ZONE":
		return TypeIDTimestamp
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return TypeIDTimestampTZ
	}
	return name
}

func (t LogicalTypeID) isInteger() bool {
	switch t {
	case TypeIDTinyInt, TypeIDSmallInt, TypeIDInteger, TypeIDBigInt,
		TypeIDUTinyInt, TypeIDUSmallInt, TypeIDUInteger, TypeIDUBigInt:
		return true
	}
	return false
}

func (t LogicalTypeID) isTimestamp() bool {
	switch t {
	case TypeIDTimestampSec, TypeIDTimestampMs, TypeIDTimestamp, TypeIDTimestampNs, TypeIDTimestampTZ:
		return true
	}
	return false
}

// LogicalType is the type of a column or expression result.
type LogicalType struct {
	ID LogicalTypeID

	// Width and Scale describe DECIMAL types. A zero Width means the
	// defaults DefaultDecimalWidth and DefaultDecimalScale.
	Width int
	Scale int
}

// Value is a typed constant. Data holds the row representation of the value
// and is ignored when IsNull is set.
type Value struct {
	Type   LogicalType
	IsNull bool
	Data   any
}
