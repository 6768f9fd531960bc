package rowexec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/shopspring/decimal"

	"github.com/hugr-lab/filetable/filter"
)

// ErrUnsupportedType is returned for Arrow types that rows cannot carry.
var ErrUnsupportedType = errors.New("unsupported arrow type")

// Coerce converts v to the canonical Go value for dt: bool, int64 for signed
// integers, uint64 for unsigned integers, float64 for floats, decimal128.Num
// scaled to dt, string, []byte, time.Time for dates and timestamps,
// time.Duration for times.
// Strings are parsed, so text columns can be read into declared types.
func Coerce(v any, dt arrow.DataType) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch dt.ID() {
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return coerceUnsigned(v, dt)
	case arrow.DECIMAL128:
		return coerceDecimal(v, dt.(*arrow.Decimal128Type))
	}

	lt := filter.LogicalTypeOf(dt)
	if lt.ID == filter.TypeIDUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
	return filter.CastValue(v, lt)
}

func coerceUnsigned(v any, dt arrow.DataType) (any, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case string:
		u, err := strconv.ParseUint(strings.TrimSpace(x), 10, dt.(arrow.FixedWidthDataType).BitWidth())
		if err != nil {
			return nil, fmt.Errorf("%w: %q to %s", filter.ErrInvalidCast, x, dt)
		}
		return u, nil
	}
	n, err := filter.CastValue(v, filter.LogicalTypeOf(dt))
	if err != nil {
		return nil, err
	}
	return uint64(n.(int64)), nil
}

func coerceDecimal(v any, dt *arrow.Decimal128Type) (any, error) {
	if num, ok := v.(decimal128.Num); ok {
		return num, nil
	}

	d, err := filter.CastValue(v, filter.LogicalType{ID: filter.TypeIDDecimal})
	if err != nil {
		return nil, err
	}
	num, err := decimalNum(d.(decimal.Decimal), dt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v to %s: %v", filter.ErrInvalidCast, v, dt, err)
	}
	return num, nil
}

// decimalNum rounds d to the scale of dt and checks that the unscaled value fits
// its precision.
func decimalNum(d decimal.Decimal, dt *arrow.Decimal128Type) (decimal128.Num, error) {
	unscaled := d.Round(dt.Scale).Shift(dt.Scale).BigInt()
	if unscaled.BitLen() > 127 {
		return decimal128.Num{}, errors.New("value out of range")
	}
	num := decimal128.FromBigInt(unscaled)
	if !num.FitsInPrecision(dt.Precision) {
		return decimal128.Num{}, fmt.Errorf("value exceeds precision %d", dt.Precision)
	}
	return num, nil
}

// durationIn converts a time of day to a count of unit.
func durationIn(d time.Duration, unit arrow.TimeUnit) int64 {
	return int64(d / unit.Multiplier())
}
