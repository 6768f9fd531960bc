package filter

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedExpression is returned when evaluating an expression class or
	// operator that has no evaluation rule.
	ErrUnsupportedExpression = errors.New("unsupported expression")

	// ErrUnknownFunction is returned for calls to functions without an implementation.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrTypeMismatch is returned when operand types cannot be combined.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivisionByZero is returned for integer or decimal division or modulo by zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNumericOverflow is returned when integer arithmetic leaves the BIGINT range.
	ErrNumericOverflow = errors.New("numeric overflow")
)

// Eval evaluates expr against row. Column references address row slots by index.
//
// Row values are nil (NULL), bool, Go integer and float types, decimal.Decimal
// (DECIMAL), string, []byte, time.Time (DATE and TIMESTAMP) and time.Duration
// (TIME). Results use bool, int64, float64, decimal.Decimal, string, []byte,
// time.Time and time.Duration.
//
// Evaluation follows SQL three-valued logic: comparisons and arithmetic with a NULL
// operand yield NULL, AND and OR follow Kleene logic.
func Eval(expr Expression, row []any) (any, error) {
	switch ex := expr.(type) {
	case *ConstantExpression:
		if ex.Value.IsNull {
			return nil, nil
		}
		return normalize(ex.Value.Data), nil
	case *ColumnRefExpression:
		return slot(row, ex.Binding.ColumnIndex)
	case *ReferenceExpression:
		return slot(row, ex.Index)
	case *ComparisonExpression:
		return evalComparison(ex, row)
	case *ConjunctionExpression:
		return evalConjunction(ex, row)
	case *FunctionExpression:
		return evalFunction(ex, row)
	case *CastExpression:
		v, err := Eval(ex.Child, row)
		if err != nil {
			return nil, err
		}
		out, err := CastValue(v, ex.ReturnType)
		if err != nil && ex.TryCast {
			return nil, nil
		}
		return out, err
	case *BetweenExpression:
		return evalBetween(ex, row)
	case *OperatorExpression:
		return evalOperator(ex, row)
	case *CaseExpression:
		return evalCase(ex, row)
	case nil:
		return nil, fmt.Errorf("%w: nil expression", ErrUnsupportedExpression)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExpression, expr.Class())
	}
}

// ReturnType reports the logical type expr evaluates to.
func ReturnType(expr Expression) LogicalType {
	switch ex := expr.(type) {
	case *ConstantExpression:
		return ex.Value.Type
	case *ColumnRefExpression:
		return ex.ReturnType
	case *ReferenceExpression:
		return ex.ReturnType
	case *FunctionExpression:
		return ex.ReturnType
	case *CastExpression:
		return ex.ReturnType
	case *OperatorExpression:
		if ex.ReturnType.ID == "" {
			return LogicalType{ID: TypeIDBoolean}
		}
		return ex.ReturnType
	case *CaseExpression:
		return ex.ReturnType
	case *ComparisonExpression, *ConjunctionExpression, *BetweenExpression:
		return LogicalType{ID: TypeIDBoolean}
	default:
		return LogicalType{ID: TypeIDUnknown}
	}
}

func slot(row []any, index int) (any, error) {
	if index < 0 || index >= len(row) {
		return nil, &ColumnBindingError{Index: index, Max: len(row)}
	}
	return normalize(row[index]), nil
}

// normalize widens integers to int64 and floats to float64.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return widenUnsigned(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return widenUnsigned(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func widenUnsigned(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// truth interprets a boolean operand. The second result reports NULL.
func truth(v any) (value, null bool, err error) {
	switch x := v.(type) {
	case nil:
		return false, true, nil
	case bool:
		return x, false, nil
	default:
		return false, false, fmt.Errorf("%w: expected BOOLEAN, got %T", ErrTypeMismatch, v)
	}
}

// compare orders two non-NULL normalized values. A decimal operand compares
// exactly against integers, finite floats and other decimals.
func compare(a, b any) (int, error) {
	if isDecimal(a) || isDecimal(b) {
		if x, ok := toDecimal(a); ok {
			if y, ok := toDecimal(b); ok {
				return x.Cmp(y), nil
			}
		}
		if x, ok := toFloat(a); ok {
			if y, ok := toFloat(b); ok {
				return cmpOrdered(x, y), nil
			}
		}
		return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrTypeMismatch, a, b)
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), nil
		case float64:
			return cmpOrdered(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, float64(y)), nil
		case float64:
			return cmpOrdered(x, y), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	case time.Duration:
		if y, ok := b.(time.Duration); ok {
			return cmpOrdered(x, y), nil
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrTypeMismatch, a, b)
}

func cmpOrdered[T int64 | float64 | time.Duration](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func evalComparison(c *ComparisonExpression, row []any) (any, error) {
	left, err := Eval(c.Left, row)
	if err != nil {
		return nil, err
	}
	right, err := Eval(c.Right, row)
	if err != nil {
		return nil, err
	}

	switch c.Type() {
	case TypeCompareDistinctFrom, TypeCompareNotDistinctFrom:
		distinct := true
		switch {
		case left == nil && right == nil:
			distinct = false
		case left != nil && right != nil:
			cmp, err := compare(left, right)
			if err != nil {
				return nil, err
			}
			distinct = cmp != 0
		}
		if c.Type() == TypeCompareDistinctFrom {
			return distinct, nil
		}
		return !distinct, nil
	}

	if left == nil || right == nil {
		return nil, nil
	}
	cmp, err := compare(left, right)
	if err != nil {
		return nil, err
	}

	switch c.Type() {
	case TypeCompareEqual:
		return cmp == 0, nil
	case TypeCompareNotEqual:
		return cmp != 0, nil
	case TypeCompareLessThan:
		return cmp < 0, nil
	case TypeCompareGreaterThan:
		return cmp > 0, nil
	case TypeCompareLessThanOrEqual:
		return cmp <= 0, nil
	case TypeCompareGreaterThanOrEqual:
		return cmp >= 0, nil
	default:
		return nil, fmt.Errorf("%w: comparison %s", ErrUnsupportedExpression, c.Type())
	}
}

func evalConjunction(c *ConjunctionExpression, row []any) (any, error) {
	// AND stops at the first FALSE, OR at the first TRUE.
	stop := c.Type() == TypeConjunctionOr
	if c.Type() != TypeConjunctionAnd && c.Type() != TypeConjunctionOr {
		return nil, fmt.Errorf("%w: conjunction %s", ErrUnsupportedExpression, c.Type())
	}

	sawNull := false
	for _, child := range c.Children {
		v, err := Eval(child, row)
		if err != nil {
			return nil, err
		}
		b, null, err := truth(v)
		if err != nil {
			return nil, err
		}
		if null {
			sawNull = true
			continue
		}
		if b == stop {
			return stop, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return !stop, nil
}

func evalBetween(b *BetweenExpression, row []any) (any, error) {
	input, err := Eval(b.Input, row)
	if err != nil {
		return nil, err
	}
	lower, err := Eval(b.Lower, row)
	if err != nil {
		return nil, err
	}
	upper, err := Eval(b.Upper, row)
	if err != nil {
		return nil, err
	}

	bound := func(limit any, inclusive bool, sign int) (any, error) {
		if input == nil || limit == nil {
			return nil, nil
		}
		cmp, err := compare(input, limit)
		if err != nil {
			return nil, err
		}
		if cmp == 0 {
			return inclusive, nil
		}
		return cmp == sign, nil
	}

	lo, err := bound(lower, b.LowerInclusive, 1)
	if err != nil {
		return nil, err
	}
	hi, err := bound(upper, b.UpperInclusive, -1)
	if err != nil {
		return nil, err
	}
	return kleeneAnd(lo, hi), nil
}

func kleeneAnd(a, b any) any {
	if a == false || b == false {
		return false
	}
	if a == nil || b == nil {
		return nil
	}
	return true
}

func evalOperator(o *OperatorExpression, row []any) (any, error) {
	args := make([]any, len(o.Children))
	for i, child := range o.Children {
		v, err := Eval(child, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch o.Type() {
	case TypeOperatorNot:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: NOT takes one operand", ErrUnsupportedExpression)
		}
		b, null, err := truth(args[0])
		if err != nil || null {
			return nil, err
		}
		return !b, nil
	case TypeOperatorIsNull, TypeOperatorIsNotNull:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s takes one operand", ErrUnsupportedExpression, o.Type())
		}
		return (args[0] == nil) == (o.Type() == TypeOperatorIsNull), nil
	case TypeOperatorCoalesce:
		for _, v := range args {
			if v != nil {
				return v, nil
			}
		}
		return nil, nil
	case TypeOperatorNullIf:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: NULLIF takes two operands", ErrUnsupportedExpression)
		}
		if args[0] == nil || args[1] == nil {
			return args[0], nil
		}
		cmp, err := compare(args[0], args[1])
		if err != nil {
			return nil, err
		}
		if cmp == 0 {
			return nil, nil
		}
		return args[0], nil
	case TypeCompareIn, TypeCompareNotIn:
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: IN without input", ErrUnsupportedExpression)
		}
		found, err := in(args[0], args[1:])
		if err != nil || found == nil {
			return nil, err
		}
		if o.Type() == TypeCompareNotIn {
			return !found.(bool), nil
		}
		return found, nil
	default:
		return nil, fmt.Errorf("%w: operator %s", ErrUnsupportedExpression, o.Type())
	}
}

func in(input any, list []any) (any, error) {
	if input == nil {
		return nil, nil
	}
	sawNull := false
	for _, v := range list {
		if v == nil {
			sawNull = true
			continue
		}
		cmp, err := compare(input, v)
		if err != nil {
			return nil, err
		}
		if cmp == 0 {
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return false, nil
}

func evalCase(c *CaseExpression, row []any) (any, error) {
	for _, check := range c.CaseChecks {
		v, err := Eval(check.WhenExpr, row)
		if err != nil {
			return nil, err
		}
		b, null, err := truth(v)
		if err != nil {
			return nil, err
		}
		if b && !null {
			return Eval(check.ThenExpr, row)
		}
	}
	if c.ElseExpr == nil {
		return nil, nil
	}
	return Eval(c.ElseExpr, row)
}

var arithmeticOps = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "%": {},
}

func evalFunction(f *FunctionExpression, row []any) (any, error) {
	args := make([]any, len(f.Children))
	for i, child := range f.Children {
		v, err := Eval(child, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	name := strings.ToLower(f.Name)
	if _, ok := arithmeticOps[name]; ok {
		return arithmetic(name, args)
	}

	switch name {
	case "lower", "lcase", "upper", "ucase", "length", "char_length":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s takes one argument", ErrUnsupportedExpression, name)
		}
		if args[0] == nil {
			return nil, nil
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects VARCHAR, got %T", ErrTypeMismatch, name, args[0])
		}
		switch name {
		case "lower", "lcase":
			return strings.ToLower(s), nil
		case "upper", "ucase":
			return strings.ToUpper(s), nil
		default:
			return int64(utf8.RuneCountInString(s)), nil
		}
	case "concat":
		// concat skips NULL arguments.
		var sb strings.Builder
		for _, v := range args {
			if v != nil {
				sb.WriteString(formatValue(v))
			}
		}
		return sb.String(), nil
	case "||":
		var sb strings.Builder
		for _, v := range args {
			if v == nil {
				return nil, nil
			}
			sb.WriteString(formatValue(v))
		}
		return sb.String(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, f.Name)
	}
}

func arithmetic(op string, args []any) (any, error) {
	if len(args) == 1 && (op == "-" || op == "+") {
		switch x := args[0].(type) {
		case nil:
			return nil, nil
		case int64:
			if op == "-" {
				if x == math.MinInt64 {
					return nil, fmt.Errorf("%w: -(%d)", ErrNumericOverflow, x)
				}
				return -x, nil
			}
			return x, nil
		case float64:
			if op == "-" {
				return -x, nil
			}
			return x, nil
		case decimal.Decimal:
			if op == "-" {
				return x.Neg(), nil
			}
			return x, nil
		default:
			return nil, fmt.Errorf("%w: %s%T", ErrTypeMismatch, op, args[0])
		}
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: operator %s takes two operands", ErrUnsupportedExpression, op)
	}

	a, b := args[0], args[1]
	if a == nil || b == nil {
		return nil, nil
	}

	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return intArithmetic(op, x, y)
		}
	}

	// DECIMAL combined with DECIMAL or an integer stays exact; a float operand
	// makes the result DOUBLE.
	_, floatA := a.(float64)
	_, floatB := b.(float64)
	if (isDecimal(a) || isDecimal(b)) && !floatA && !floatB {
		x, okA := toDecimal(a)
		y, okB := toDecimal(b)
		if !okA || !okB {
			return nil, fmt.Errorf("%w: %T %s %T", ErrTypeMismatch, a, op, b)
		}
		return decimalArithmetic(op, x, y)
	}

	x, okA := toFloat(a)
	y, okB := toFloat(b)
	if !okA || !okB {
		return nil, fmt.Errorf("%w: %T %s %T", ErrTypeMismatch, a, op, b)
	}
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		return x / y, nil
	default:
		return math.Mod(x, y), nil
	}
}

func intArithmetic(op string, x, y int64) (any, error) {
	switch op {
	case "+":
		r := x + y
		if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
			return nil, fmt.Errorf("%w: %d + %d", ErrNumericOverflow, x, y)
		}
		return r, nil
	case "-":
		r := x - y
		if (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0) {
			return nil, fmt.Errorf("%w: %d - %d", ErrNumericOverflow, x, y)
		}
		return r, nil
	case "*":
		if x == 0 || y == 0 {
			return int64(0), nil
		}
		r := x * y
		if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return nil, fmt.Errorf("%w: %d * %d", ErrNumericOverflow, x, y)
		}
		return r, nil
	case "/":
		if y == 0 {
			return nil, ErrDivisionByZero
		}
		if x == math.MinInt64 && y == -1 {
			return nil, fmt.Errorf("%w: %d / %d", ErrNumericOverflow, x, y)
		}
		return x / y, nil
	default:
		if y == 0 {
			return nil, ErrDivisionByZero
		}
		return x % y, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case decimal.Decimal:
		return x.InexactFloat64(), true
	default:
		return 0, false
	}
}
