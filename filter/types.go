package filter

import "fmt"

// ExpressionClass is the node kind of a bound expression.
type ExpressionClass string

// Expression classes with evaluation rules. Any other class decodes as
// UnsupportedExpression.
const (
	ClassBoundBetween     ExpressionClass = "BOUND_BETWEEN"
	ClassBoundCase        ExpressionClass = "BOUND_CASE"
	ClassBoundCast        ExpressionClass = "BOUND_CAST"
	ClassBoundColumnRef   ExpressionClass = "BOUND_COLUMN_REF"
	ClassBoundComparison  ExpressionClass = "BOUND_COMPARISON"
	ClassBoundConjunction ExpressionClass = "BOUND_CONJUNCTION"
	ClassBoundConstant    ExpressionClass = "BOUND_CONSTANT"
	ClassBoundFunction    ExpressionClass = "BOUND_FUNCTION"
	ClassBoundOperator    ExpressionClass = "BOUND_OPERATOR"
	ClassBoundRef         ExpressionClass = "BOUND_REF"
)

// ExpressionType selects the operation within a class.
type ExpressionType string

// Comparisons.
const (
	TypeCompareEqual              ExpressionType = "COMPARE_EQUAL"
	TypeCompareNotEqual           ExpressionType = "COMPARE_NOTEQUAL"
	TypeCompareLessThan           ExpressionType = "COMPARE_LESSTHAN"
	TypeCompareGreaterThan        ExpressionType = "COMPARE_GREATERTHAN"
	TypeCompareLessThanOrEqual    ExpressionType = "COMPARE_LESSTHANOREQUALTO"
	TypeCompareGreaterThanOrEqual ExpressionType = "COMPARE_GREATERTHANOREQUALTO"
	TypeCompareDistinctFrom       ExpressionType = "COMPARE_DISTINCT_FROM"
	TypeCompareNotDistinctFrom    ExpressionType = "COMPARE_NOT_DISTINCT_FROM"
	TypeCompareIn                 ExpressionType = "COMPARE_IN"
	TypeCompareNotIn              ExpressionType = "COMPARE_NOT_IN"
	TypeCompareBetween            ExpressionType = "COMPARE_BETWEEN"
)

// Conjunctions and operators.
const (
	TypeConjunctionAnd ExpressionType = "CONJUNCTION_AND"
	TypeConjunctionOr  ExpressionType = "CONJUNCTION_OR"

	TypeOperatorNot       ExpressionType = "OPERATOR_NOT"
	TypeOperatorIsNull    ExpressionType = "OPERATOR_IS_NULL"
	TypeOperatorIsNotNull ExpressionType = "OPERATOR_IS_NOT_NULL"
	TypeOperatorNullIf    ExpressionType = "OPERATOR_NULLIF"
	TypeOperatorCoalesce  ExpressionType = "OPERATOR_COALESCE"
)

// Leaf and wrapper node types.
const (
	TypeValueConstant  ExpressionType = "VALUE_CONSTANT"
	TypeBoundColumnRef ExpressionType = "BOUND_COLUMN_REF"
	TypeBoundRef       ExpressionType = "BOUND_REF"
	TypeBoundFunction  ExpressionType = "BOUND_FUNCTION"
	TypeCast           ExpressionType = "CAST"
	TypeCaseExpr       ExpressionType = "CASE_EXPR"
)

// Expression is a node of a bound expression tree. The set of implementations
// is closed; use a type switch to inspect a node.
type Expression interface {
	Class() ExpressionClass
	Type() ExpressionType

	// Alias is the output name requested for the expression, or "".
	Alias() string

	expressionMarker()
}

// BaseExpression holds the tags shared by every node.
type BaseExpression struct {
	ExprClass ExpressionClass
	ExprType  ExpressionType
	ExprAlias string
}

func (b *BaseExpression) Class() ExpressionClass { return b.ExprClass }
func (b *BaseExpression) Type() ExpressionType   { return b.ExprType }
func (b *BaseExpression) Alias() string          { return b.ExprAlias }

func (b *BaseExpression) expressionMarker()      {}
func (b *BaseExpression) base() *BaseExpression { return b }

// FilterPushdown is a decoded filter document.
type FilterPushdown struct {
	// Filters are implicitly AND'ed together.
	Filters []Expression

	// ColumnBindings names the column at each binding index, when the
	// producer sends names.
	ColumnBindings []string
}

// Predicate combines the filters into a single expression, nil when there are none.
func (fp *FilterPushdown) Predicate() Expression {
	if fp == nil || len(fp.Filters) == 0 {
		return nil
	}
	if len(fp.Filters) == 1 {
		return fp.Filters[0]
	}
	return And(fp.Filters...)
}

// ColumnName returns the name bound to ref.
func (fp *FilterPushdown) ColumnName(ref *ColumnRefExpression) (string, error) {
	i := ref.Binding.ColumnIndex
	if i < 0 || i >= len(fp.ColumnBindings) {
		return "", &ColumnBindingError{Index: i, Max: len(fp.ColumnBindings)}
	}
	return fp.ColumnBindings[i], nil
}

// ColumnBindingError reports a column index outside the binding names.
type ColumnBindingError struct {
	Index int
	Max   int
}

func (e *ColumnBindingError) Error() string {
	return fmt.Sprintf("column binding %d out of range [0, %d)", e.Index, e.Max)
}

// ColumnBinding locates a column. ColumnIndex is the row slot read by the
// expression; TableIndex is kept for diagnostics.
type ColumnBinding struct {
	TableIndex  int
	ColumnIndex int
}

// ColumnRefExpression reads the row slot Binding.ColumnIndex.
type ColumnRefExpression struct {
	BaseExpression
	Binding    ColumnBinding
	ReturnType LogicalType
}

// ReferenceExpression reads the row slot Index.
type ReferenceExpression struct {
	BaseExpression
	Index      int
	ReturnType LogicalType
}

// ConstantExpression is a literal.
type ConstantExpression struct {
	BaseExpression
	Value Value
}

// ComparisonExpression compares Left with Right. See the TypeCompare constants.
type ComparisonExpression struct {
	BaseExpression
	Left  Expression
	Right Expression
}

// ConjunctionExpression is an AND or OR over any number of children.
type ConjunctionExpression struct {
	BaseExpression
	Children []Expression
}

// BetweenExpression tests Lower <= Input <= Upper, each bound optionally exclusive.
type BetweenExpression struct {
	BaseExpression
	Input          Expression
	Lower          Expression
	Upper          Expression
	LowerInclusive bool
	UpperInclusive bool
}

// OperatorExpression covers NOT, IS [NOT] NULL, COALESCE, NULLIF and [NOT] IN.
// For IN the first child is the tested value and the rest is the list.
type OperatorExpression struct {
	BaseExpression
	Children   []Expression
	ReturnType LogicalType
}

// FunctionExpression calls a scalar function by name. Arithmetic and string
// concatenation arrive as functions with IsOperator set.
type FunctionExpression struct {
	BaseExpression
	Name       string
	Children   []Expression
	ReturnType LogicalType
	IsOperator bool
}

// CastExpression converts Child to ReturnType. TryCast yields NULL instead of failing.
type CastExpression struct {
	BaseExpression
	Child      Expression
	ReturnType LogicalType
	TryCast    bool
}

// CaseExpression is a searched CASE. A missing ElseExpr yields NULL.
type CaseExpression struct {
	BaseExpression
	CaseChecks []CaseCheck
	ElseExpr   Expression
	ReturnType LogicalType
}

// CaseCheck is one WHEN ... THEN branch.
type CaseCheck struct {
	WhenExpr Expression
	ThenExpr Expression
}

// UnsupportedExpression keeps the tags of a node that cannot be evaluated, such
// as an aggregate or a parameter. Eval fails with ErrUnsupportedExpression.
type UnsupportedExpression struct {
	BaseExpression
}
