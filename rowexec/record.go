package rowexec

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"

	"github.com/hugr-lab/filetable/filter"
)

// RecordRows reads a record batch into rows. Decimal columns are read as exact
// decimal.Decimal values.
func RecordRows(rec arrow.RecordBatch) ([]Row, error) {
	rows := make([]Row, rec.NumRows())
	for i := range rows {
		rows[i] = make(Row, rec.NumCols())
	}
	for c, col := range rec.Columns() {
		for r := range rows {
			v, err := arrayValue(col, r)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", rec.ColumnName(c), err)
			}
			rows[r][c] = v
		}
	}
	return rows, nil
}

func arrayValue(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}
	switch a := col.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(a.Value(i).BigInt(), -scale), nil
	case *array.String:
		return a.Value(i), nil
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...), nil
	case *array.Date32:
		return a.Value(i).ToTime(), nil
	case *array.Time32:
		unit := a.DataType().(*arrow.Time32Type).Unit
		return time.Duration(a.Value(i)) * unit.Multiplier(), nil
	case *array.Time64:
		unit := a.DataType().(*arrow.Time64Type).Unit
		return time.Duration(a.Value(i)) * unit.Multiplier(), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, col.DataType())
	}
}

// BuildRecord builds a record batch of schema from rows, coercing every value to
// its field type. The caller releases the result.
func BuildRecord(mem memory.Allocator, schema *arrow.Schema, rows []Row) (arrow.RecordBatch, error) {
	width := schema.NumFields()
	if width == 0 {
		for r, row := range rows {
			if len(row) != 0 {
				return nil, fmt.Errorf("row %d has %d values, schema has no fields", r, len(row))
			}
		}
		return array.NewRecordBatch(schema, nil, int64(len(rows))), nil
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, schema has %d fields", r, len(row), width)
		}
		for c, v := range row {
			field := schema.Field(c)
			if err := appendValue(b.Field(c), field.Type, v); err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", r, field.Name, err)
			}
		}
	}
	return b.NewRecordBatch(), nil
}

func appendValue(b array.Builder, dt arrow.DataType, v any) error {
	c, err := Coerce(v, dt)
	if err != nil {
		return err
	}
	if c == nil {
		b.AppendNull()
		return nil
	}

	switch bb := b.(type) {
	case *array.BooleanBuilder:
		bb.Append(c.(bool))
	case *array.Int8Builder:
		bb.Append(int8(c.(int64)))
	case *array.Int16Builder:
		bb.Append(int16(c.(int64)))
	case *array.Int32Builder:
		bb.Append(int32(c.(int64)))
	case *array.Int64Builder:
		bb.Append(c.(int64))
	case *array.Uint8Builder:
		bb.Append(uint8(c.(uint64)))
	case *array.Uint16Builder:
		bb.Append(uint16(c.(uint64)))
	case *array.Uint32Builder:
		bb.Append(uint32(c.(uint64)))
	case *array.Uint64Builder:
		bb.Append(c.(uint64))
	case *array.Float32Builder:
		bb.Append(float32(c.(float64)))
	case *array.Float64Builder:
		bb.Append(c.(float64))
	case *array.Decimal128Builder:
		bb.Append(c.(decimal128.Num))
	case *array.StringBuilder:
		bb.Append(c.(string))
	case *array.BinaryBuilder:
		bb.Append(c.([]byte))
	case *array.Date32Builder:
		bb.Append(arrow.Date32FromTime(c.(time.Time)))
	case *array.Time32Builder:
		bb.Append(arrow.Time32(durationIn(c.(time.Duration), dt.(*arrow.Time32Type).Unit)))
	case *array.Time64Builder:
		bb.Append(arrow.Time64(durationIn(c.(time.Duration), dt.(*arrow.Time64Type).Unit)))
	case *array.TimestampBuilder:
		ts, err := arrow.TimestampFromTime(c.(time.Time), dt.(*arrow.TimestampType).Unit)
		if err != nil {
			return err
		}
		bb.Append(ts)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
	return nil
}

// ProjectedSchema describes the rows produced by projections. Fields are named by
// the expression alias or EXPR$<position>.
func ProjectedSchema(projections []filter.Expression) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(projections))
	for i, expr := range projections {
		typ := filter.ReturnType(expr).ArrowType()
		if typ == nil {
			return nil, fmt.Errorf("projection %d [%s]: %w: %s",
				i, filter.Format(expr), ErrUnsupportedType, filter.ReturnType(expr).ID)
		}
		name := expr.Alias()
		if name == "" {
			name = "EXPR$" + strconv.Itoa(i)
		}
		fields[i] = arrow.Field{Name: name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// EvaluateRecord applies Evaluate to a record batch and builds the result batch.
// Without projections the result keeps the input schema. The caller releases the
// result.
func EvaluateRecord(mem memory.Allocator, predicate filter.Expression, projections []filter.Expression, rec arrow.RecordBatch) (arrow.RecordBatch, error) {
	schema := rec.Schema()
	if projections != nil {
		var err error
		schema, err = ProjectedSchema(projections)
		if err != nil {
			return nil, err
		}
	}

	rows, err := RecordRows(rec)
	if err != nil {
		return nil, err
	}
	out, err := Evaluate(predicate, projections, rows)
	if err != nil {
		return nil, err
	}
	return BuildRecord(mem, schema, out)
}
