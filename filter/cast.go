package filter

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidCast is returned when a value cannot be converted to the target type.
var ErrInvalidCast = errors.New("invalid cast")

// Text layouts accepted when casting VARCHAR to temporal types.
var (
	dateLayouts      = []string{"2006-01-02"}
	timeLayouts      = []string{"15:04:05.999999999", "15:04"}
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	}
)

// CastValue converts a row value to the representation of target.
// NULL casts to NULL for every target type.
func CastValue(v any, target LogicalType) (any, error) {
	v = normalize(v)
	if v == nil {
		return nil, nil
	}

	id := target.ID.Normalize()
	var (
		out any
		ok  bool
	)
	switch {
	case id == TypeIDVarchar || id == TypeIDChar:
		out, ok = formatValue(v), true
	case id == TypeIDBoolean:
		out, ok = castBool(v)
	case id.isInteger():
		out, ok = castInt(v, id)
	case id == TypeIDFloat || id == TypeIDDouble:
		out, ok = castFloat(v)
	case id == TypeIDDecimal:
		out, ok = castDecimal(v, target)
	case id == TypeIDBlob:
		switch x := v.(type) {
		case []byte:
			out, ok = x, true
		case string:
			out, ok = []byte(x), true
		}
	case id == TypeIDDate:
		out, ok = castTimestamp(v)
		if ok {
			t := out.(time.Time)
			out = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	case id == TypeIDTime:
		out, ok = castTime(v)
	case id.isTimestamp():
		out, ok = castTimestamp(v)
	case id == TypeIDUnknown || id == TypeIDAny || id == "":
		out, ok = v, true
	}
	if !ok {
		return nil, fmt.Errorf("%w: %v (%T) to %s", ErrInvalidCast, v, v, target.ID)
	}
	return out, nil
}

func castBool(v any) (any, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case int64:
		return x != 0, true
	case decimal.Decimal:
		return !x.IsZero(), true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return nil, false
}

func castInt(v any, id LogicalTypeID) (any, bool) {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case float64:
		r := math.Round(x)
		if math.IsNaN(r) || r < math.MinInt64 || r >= math.MaxInt64 {
			return nil, false
		}
		n = int64(r)
	case decimal.Decimal:
		r := x.Round(0)
		if !r.BigInt().IsInt64() {
			return nil, false
		}
		n = r.IntPart()
	case bool:
		if x {
			n = 1
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, false
		}
		n = parsed
	default:
		return nil, false
	}
	if !fitsInt(n, id) {
		return nil, false
	}
	return n, true
}

func fitsInt(n int64, id LogicalTypeID) bool {
	switch id {
	case TypeIDTinyInt:
		return n >= math.MinInt8 && n <= math.MaxInt8
	case TypeIDSmallInt:
		return n >= math.MinInt16 && n <= math.MaxInt16
	case TypeIDInteger:
		return n >= math.MinInt32 && n <= math.MaxInt32
	case TypeIDUTinyInt:
		return n >= 0 && n <= math.MaxUint8
	case TypeIDUSmallInt:
		return n >= 0 && n <= math.MaxUint16
	case TypeIDUInteger:
		return n >= 0 && n <= math.MaxUint32
	case TypeIDUBigInt:
		return n >= 0
	default:
		return true
	}
}

func castFloat(v any) (any, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case decimal.Decimal:
		return x.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return nil, false
}

func castTime(v any) (any, bool) {
	switch x := v.(type) {
	case time.Duration:
		return x, true
	case time.Time:
		midnight := time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, x.Location())
		return x.Sub(midnight), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Sub(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)), true
			}
		}
	}
	return nil, false
}

func castTimestamp(v any) (any, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return nil, false
}

// formatValue renders a row value as text, the way a cast to VARCHAR does.
func formatValue(v any) string {
	switch x := normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case decimal.Decimal:
		return x.String()
	case []byte:
		return `\x` + hex.EncodeToString(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05.999999999")
	case time.Duration:
		return formatTimeOfDay(x)
	default:
		return fmt.Sprint(x)
	}
}

func formatTimeOfDay(d time.Duration) string {
	return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04:05.999999")
}
