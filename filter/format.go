package filter

import (
	"strconv"
	"strings"
	"time"
)

// Format renders expr as SQL text. Column slots are named from columns when the
// index is in range and as $index otherwise.
func Format(expr Expression, columns ...string) string {
	f := formatter{columns: columns}
	return f.format(expr)
}

type formatter struct {
	columns []string
}

func (f formatter) format(expr Expression) string {
	switch ex := expr.(type) {
	case nil:
		return "NULL"
	case *ConstantExpression:
		return formatConstant(ex.Value)
	case *ColumnRefExpression:
		return f.column(ex.Binding.ColumnIndex)
	case *ReferenceExpression:
		return f.column(ex.Index)
	case *ComparisonExpression:
		return f.format(ex.Left) + " " + comparisonOperator(ex.Type()) + " " + f.format(ex.Right)
	case *ConjunctionExpression:
		sep := " AND "
		if ex.Type() == TypeConjunctionOr {
			sep = " OR "
		}
		return "(" + f.join(ex.Children, sep) + ")"
	case *FunctionExpression:
		return f.function(ex)
	case *CastExpression:
		name := "CAST"
		if ex.TryCast {
			name = "TRY_CAST"
		}
		return name + "(" + f.format(ex.Child) + " AS " + string(ex.ReturnType.ID) + ")"
	case *BetweenExpression:
		return f.between(ex)
	case *OperatorExpression:
		return f.operator(ex)
	case *CaseExpression:
		var sb strings.Builder
		sb.WriteString("CASE")
		for _, check := range ex.CaseChecks {
			sb.WriteString(" WHEN " + f.format(check.WhenExpr) + " THEN " + f.format(check.ThenExpr))
		}
		if ex.ElseExpr != nil {
			sb.WriteString(" ELSE " + f.format(ex.ElseExpr))
		}
		sb.WriteString(" END")
		return sb.String()
	default:
		return "<" + string(expr.Class()) + ">"
	}
}

func (f formatter) column(index int) string {
	if index >= 0 && index < len(f.columns) {
		return quoteIdentifier(f.columns[index])
	}
	return "$" + strconv.Itoa(index)
}

func (f formatter) join(exprs []Expression, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = f.format(e)
	}
	return strings.Join(parts, sep)
}

func (f formatter) function(fn *FunctionExpression) string {
	name := strings.ToLower(fn.Name)
	if _, ok := arithmeticOps[name]; ok || name == "||" {
		if len(fn.Children) == 1 {
			return name + f.format(fn.Children[0])
		}
		return "(" + f.join(fn.Children, " "+name+" ") + ")"
	}
	return name + "(" + f.join(fn.Children, ", ") + ")"
}

func (f formatter) between(b *BetweenExpression) string {
	if b.LowerInclusive && b.UpperInclusive {
		return f.format(b.Input) + " BETWEEN " + f.format(b.Lower) + " AND " + f.format(b.Upper)
	}
	lower, upper := ">", "<"
	if b.LowerInclusive {
		lower = ">="
	}
	if b.UpperInclusive {
		upper = "<="
	}
	input := f.format(b.Input)
	return "(" + input + " " + lower + " " + f.format(b.Lower) + " AND " + input + " " + upper + " " + f.format(b.Upper) + ")"
}

func (f formatter) operator(o *OperatorExpression) string {
	switch o.Type() {
	case TypeOperatorNot:
		return "NOT (" + f.join(o.Children, ", ") + ")"
	case TypeOperatorIsNull:
		return f.join(o.Children, ", ") + " IS NULL"
	case TypeOperatorIsNotNull:
		return f.join(o.Children, ", ") + " IS NOT NULL"
	case TypeOperatorCoalesce:
		return "COALESCE(" + f.join(o.Children, ", ") + ")"
	case TypeOperatorNullIf:
		return "NULLIF(" + f.join(o.Children, ", ") + ")"
	case TypeCompareIn, TypeCompareNotIn:
		if len(o.Children) == 0 {
			return "<" + string(o.Type()) + ">"
		}
		keyword := " IN ("
		if o.Type() == TypeCompareNotIn {
			keyword = " NOT IN ("
		}
		return f.format(o.Children[0]) + keyword + f.join(o.Children[1:], ", ") + ")"
	default:
		return "<" + string(o.Type()) + ">"
	}
}

func comparisonOperator(t ExpressionType) string {
	switch t {
	case TypeCompareEqual:
		return "="
	case TypeCompareNotEqual:
		return "<>"
	case TypeCompareLessThan:
		return "<"
	case TypeCompareGreaterThan:
		return ">"
	case TypeCompareLessThanOrEqual:
		return "<="
	case TypeCompareGreaterThanOrEqual:
		return ">="
	case TypeCompareDistinctFrom:
		return "IS DISTINCT FROM"
	case TypeCompareNotDistinctFrom:
		return "IS NOT DISTINCT FROM"
	default:
		return string(t)
	}
}

func formatConstant(v Value) string {
	if v.IsNull || v.Data == nil {
		return "NULL"
	}
	switch x := normalize(v.Data).(type) {
	case string:
		return quoteLiteral(x)
	case []byte:
		return quoteLiteral(formatValue(x)) + "::BLOB"
	case time.Time:
		switch v.Type.ID.Normalize() {
		case TypeIDDate:
			return "DATE " + quoteLiteral(x.Format("2006-01-02"))
		default:
			return "TIMESTAMP " + quoteLiteral(x.Format("2006-01-02 15:04:05.999999999"))
		}
	case time.Duration:
		return "TIME " + quoteLiteral(formatTimeOfDay(x))
	default:
		return formatValue(x)
	}
}

// quoteLiteral returns a SQL string literal with single quotes doubled.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdentifier double-quotes name unless it is a plain lower-case identifier.
func quoteIdentifier(name string) string {
	if name == "" {
		return `""`
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		plain := c == '_' || (c >= 'a' && c <= 'z') || (i > 0 && c >= '0' && c <= '9')
		if !plain {
			return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		}
	}
	return name
}
