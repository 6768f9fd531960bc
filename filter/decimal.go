package filter

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// toDecimal widens an exact numeric operand to a decimal. Non-finite floats have
// no decimal form.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case int64:
		return decimal.NewFromInt(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	}
	return decimal.Decimal{}, false
}

func isDecimal(v any) bool {
	_, ok := v.(decimal.Decimal)
	return ok
}

// castDecimal rounds to the target scale when the target declares a width.
func castDecimal(v any, target LogicalType) (any, bool) {
	var d decimal.Decimal
	switch x := v.(type) {
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return nil, false
		}
		d = parsed
	default:
		var ok bool
		if d, ok = toDecimal(v); !ok {
			return nil, false
		}
	}
	if target.Width > 0 {
		d = d.Round(int32(target.Scale))
	}
	return d, true
}

func decimalArithmetic(op string, x, y decimal.Decimal) (any, error) {
	switch op {
	case "+":
		return x.Add(y), nil
	case "-":
		return x.Sub(y), nil
	case "*":
		return x.Mul(y), nil
	case "/":
		if y.IsZero() {
			return nil, ErrDivisionByZero
		}
		return x.Div(y), nil
	default:
		if y.IsZero() {
			return nil, ErrDivisionByZero
		}
		return x.Mod(y), nil
	}
}
