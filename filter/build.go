package filter

// Helpers for building expression trees in Go, mirroring what Parse produces.

// Col references row slot index.
func Col(index int, typ LogicalTypeID) *ColumnRefExpression {
	return &ColumnRefExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundColumnRef, ExprType: TypeBoundColumnRef},
		Binding:        ColumnBinding{ColumnIndex: index},
		ReturnType:     LogicalType{ID: typ},
	}
}

// Ref references row slot index through a bound reference.
func Ref(index int, typ LogicalTypeID) *ReferenceExpression {
	return &ReferenceExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundRef, ExprType: TypeBoundRef},
		Index:          index,
		ReturnType:     LogicalType{ID: typ},
	}
}

// Const wraps a value in a constant expression.
func Const(v Value) *ConstantExpression {
	return &ConstantExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundConstant, ExprType: TypeValueConstant},
		Value:          v,
	}
}

// Int returns a BIGINT constant.
func Int(v int64) *ConstantExpression {
	return Const(Value{Type: LogicalType{ID: TypeIDBigInt}, Data: v})
}

// Float returns a DOUBLE constant.
func Float(v float64) *ConstantExpression {
	return Const(Value{Type: LogicalType{ID: TypeIDDouble}, Data: v})
}

// String returns a VARCHAR constant.
func String(v string) *ConstantExpression {
	return Const(Value{Type: LogicalType{ID: TypeIDVarchar}, Data: v})
}

// Bool returns a BOOLEAN constant.
func Bool(v bool) *ConstantExpression {
	return Const(Value{Type: LogicalType{ID: TypeIDBoolean}, Data: v})
}

// Null returns a NULL constant of the given type.
func Null(typ LogicalTypeID) *ConstantExpression {
	return Const(Value{Type: LogicalType{ID: typ}, IsNull: true})
}

// Compare builds a comparison of the given type.
func Compare(typ ExpressionType, left, right Expression) *ComparisonExpression {
	return &ComparisonExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundComparison, ExprType: typ},
		Left:           left,
		Right:          right,
	}
}

// And builds a conjunction.
func And(children ...Expression) *ConjunctionExpression {
	return &ConjunctionExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundConjunction, ExprType: TypeConjunctionAnd},
		Children:       children,
	}
}

// Or builds a disjunction.
func Or(children ...Expression) *ConjunctionExpression {
	return &ConjunctionExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundConjunction, ExprType: TypeConjunctionOr},
		Children:       children,
	}
}

// Operator builds an operator expression.
func Operator(typ ExpressionType, returnType LogicalTypeID, children ...Expression) *OperatorExpression {
	return &OperatorExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundOperator, ExprType: typ},
		Children:       children,
		ReturnType:     LogicalType{ID: returnType},
	}
}

// Not negates a boolean expression.
func Not(child Expression) *OperatorExpression {
	return Operator(TypeOperatorNot, TypeIDBoolean, child)
}

// IsNull tests child for NULL.
func IsNull(child Expression) *OperatorExpression {
	return Operator(TypeOperatorIsNull, TypeIDBoolean, child)
}

// Call builds a function call. Arithmetic operators are flagged as operators.
func Call(name string, returnType LogicalTypeID, children ...Expression) *FunctionExpression {
	_, isOp := arithmeticOps[name]
	return &FunctionExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundFunction, ExprType: TypeBoundFunction},
		Name:           name,
		Children:       children,
		ReturnType:     LogicalType{ID: returnType},
		IsOperator:     isOp,
	}
}

// Cast builds a cast to typ.
func Cast(child Expression, typ LogicalTypeID) *CastExpression {
	return &CastExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundCast, ExprType: TypeCast},
		Child:          child,
		ReturnType:     LogicalType{ID: typ},
	}
}

// Between builds an inclusive BETWEEN.
func Between(input, lower, upper Expression) *BetweenExpression {
	return &BetweenExpression{
		BaseExpression: BaseExpression{ExprClass: ClassBoundBetween, ExprType: TypeCompareBetween},
		Input:          input,
		Lower:          lower,
		Upper:          upper,
		LowerInclusive: true,
		UpperInclusive: true,
	}
}

// WithAlias sets the alias of e and returns it.
func WithAlias[E Expression](e E, alias string) E {
	if b, ok := any(e).(interface{ base() *BaseExpression }); ok {
		b.base().ExprAlias = alias
	}
	return e
}
