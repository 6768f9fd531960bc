package filter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ErrMalformedExpression is returned when a serialized expression cannot be decoded.
var ErrMalformedExpression = errors.New("malformed expression")

// Parse decodes a filter pushdown document:
//
//	{"filters": [<expression>, ...], "column_binding_names_by_index": ["id", ...]}
//
// Empty input yields an empty pushdown. Expression classes without evaluation
// rules decode as UnsupportedExpression.
func Parse(data []byte) (*FilterPushdown, error) {
	if len(data) == 0 {
		return &FilterPushdown{}, nil
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("filter: %w: expected an object", ErrMalformedExpression)
	}

	fp := &FilterPushdown{}
	for _, name := range doc.Get("column_binding_names_by_index").Array() {
		fp.ColumnBindings = append(fp.ColumnBindings, name.String())
	}
	if fp.Filters, err = decodeList(doc.Get("filters").Array(), "filter"); err != nil {
		return nil, err
	}
	return fp, nil
}

// ParseExpressions decodes a JSON array of expressions, as sent for projection lists.
// Empty input yields a nil slice; "[]" yields an empty, non-nil slice.
func ParseExpressions(data []byte) ([]Expression, error) {
	if len(data) == 0 {
		return nil, nil
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("filter: %w: expected an array", ErrMalformedExpression)
	}
	return decodeList(doc.Array(), "expression")
}

func parseDocument(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("filter: %w: invalid JSON", ErrMalformedExpression)
	}
	return gjson.ParseBytes(data), nil
}

func decodeList(items []gjson.Result, what string) ([]Expression, error) {
	exprs := make([]Expression, 0, len(items))
	for i, item := range items {
		expr, err := decodeExpression(item)
		if err != nil {
			return nil, fmt.Errorf("filter: %s %d: %w", what, i, err)
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func decodeExpression(r gjson.Result) (Expression, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrMalformedExpression, r.Type)
	}

	base := BaseExpression{
		ExprClass: ExpressionClass(r.Get("expression_class").String()),
		ExprType:  ExpressionType(r.Get("type").String()),
		ExprAlias: r.Get("alias").String(),
	}

	d := decoder{node: r}
	var expr Expression
	switch base.ExprClass {
	case ClassBoundComparison:
		expr = &ComparisonExpression{
			BaseExpression: base,
			Left:           d.child("left"),
			Right:          d.child("right"),
		}
	case ClassBoundConjunction:
		expr = &ConjunctionExpression{
			BaseExpression: base,
			Children:       d.children("children"),
		}
	case ClassBoundConstant:
		expr = &ConstantExpression{
			BaseExpression: base,
			Value:          d.value("value"),
		}
	case ClassBoundColumnRef:
		expr = &ColumnRefExpression{
			BaseExpression: base,
			Binding: ColumnBinding{
				TableIndex:  int(r.Get("binding.table_index").Int()),
				ColumnIndex: int(r.Get("binding.column_index").Int()),
			},
			ReturnType: d.logicalType("return_type"),
		}
	case ClassBoundRef:
		expr = &ReferenceExpression{
			BaseExpression: base,
			Index:          int(r.Get("index").Int()),
			ReturnType:     d.logicalType("return_type"),
		}
	case ClassBoundFunction:
		expr = &FunctionExpression{
			BaseExpression: base,
			Name:           r.Get("name").String(),
			Children:       d.children("children"),
			ReturnType:     d.logicalType("return_type"),
			IsOperator:     r.Get("is_operator").Bool(),
		}
	case ClassBoundCast:
		expr = &CastExpression{
			BaseExpression: base,
			Child:          d.child("child"),
			ReturnType:     d.logicalType("return_type"),
			TryCast:        r.Get("try_cast").Bool(),
		}
	case ClassBoundBetween:
		expr = &BetweenExpression{
			BaseExpression: base,
			Input:          d.child("input"),
			Lower:          d.child("lower"),
			Upper:          d.child("upper"),
			LowerInclusive: r.Get("lower_inclusive").Bool(),
			UpperInclusive: r.Get("upper_inclusive").Bool(),
		}
	case ClassBoundOperator:
		expr = &OperatorExpression{
			BaseExpression: base,
			Children:       d.children("children"),
			ReturnType:     d.logicalType("return_type"),
		}
	case ClassBoundCase:
		c := &CaseExpression{
			BaseExpression: base,
			ReturnType:     d.logicalType("return_type"),
		}
		for i, check := range r.Get("case_checks").Array() {
			cd := decoder{node: check, path: "case_checks." + strconv.Itoa(i) + "."}
			c.CaseChecks = append(c.CaseChecks, CaseCheck{
				WhenExpr: cd.child("when_expr"),
				ThenExpr: cd.child("then_expr"),
			})
			d.keep(cd.err)
		}
		if elseExpr := r.Get("else_expr"); elseExpr.Exists() && elseExpr.Type != gjson.Null {
			c.ElseExpr = d.child("else_expr")
		}
		expr = c
	default:
		return &UnsupportedExpression{BaseExpression: base}, nil
	}

	if d.err != nil {
		return nil, d.err
	}
	return expr, nil
}

// decoder reads the members of one expression node. The first error is kept
// and later reads are skipped.
type decoder struct {
	node gjson.Result
	path string
	err  error
}

func (d *decoder) keep(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

func (d *decoder) child(key string) Expression {
	if d.err != nil {
		return nil
	}
	r := d.node.Get(key)
	if !r.Exists() {
		d.err = fmt.Errorf("%w: missing %s%s", ErrMalformedExpression, d.path, key)
		return nil
	}
	expr, err := decodeExpression(r)
	if err != nil {
		d.err = fmt.Errorf("%s%s: %w", d.path, key, err)
	}
	return expr
}

func (d *decoder) children(key string) []Expression {
	if d.err != nil {
		return nil
	}
	items := d.node.Get(key).Array()
	exprs := make([]Expression, 0, len(items))
	for i, item := range items {
		expr, err := decodeExpression(item)
		if err != nil {
			d.err = fmt.Errorf("%s%s %d: %w", d.path, key, i, err)
			return nil
		}
		exprs = append(exprs, expr)
	}
	return exprs
}

func (d *decoder) logicalType(key string) LogicalType {
	if d.err != nil {
		return LogicalType{}
	}
	lt, err := decodeLogicalType(d.node.Get(key))
	if err != nil {
		d.err = fmt.Errorf("%s%s: %w", d.path, key, err)
	}
	return lt
}

func (d *decoder) value(key string) Value {
	if d.err != nil {
		return Value{}
	}
	v, err := decodeValue(d.node.Get(key))
	if err != nil {
		d.err = fmt.Errorf("%s%s: %w", d.path, key, err)
	}
	return v
}

// decodeLogicalType reads {"id": "DECIMAL", "type_info": {"type": "DECIMAL_TYPE_INFO", ...}}.
// A missing type decodes as the zero LogicalType.
func decodeLogicalType(r gjson.Result) (LogicalType, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return LogicalType{}, nil
	}
	if !r.IsObject() {
		return LogicalType{}, fmt.Errorf("%w: type must be an object", ErrMalformedExpression)
	}

	lt := LogicalType{ID: LogicalTypeID(r.Get("id").String()).Normalize()}
	if info := r.Get("type_info"); info.Get("type").String() == "DECIMAL_TYPE_INFO" {
		lt.Width = int(info.Get("width").Int())
		lt.Scale = int(info.Get("scale").Int())
	}
	return lt, nil
}

// decodeValue reads {"type": <type>, "is_null": false, "value": <data>}.
func decodeValue(r gjson.Result) (Value, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return Value{IsNull: true}, nil
	}

	lt, err := decodeLogicalType(r.Get("type"))
	if err != nil {
		return Value{}, err
	}
	v := Value{Type: lt, IsNull: r.Get("is_null").Bool()}

	data := r.Get("value")
	if v.IsNull || !data.Exists() || data.Type == gjson.Null {
		v.IsNull = true
		return v, nil
	}
	if v.Data, err = decodeData(data, lt.ID); err != nil {
		return Value{}, fmt.Errorf("%w: %s value %s: %v", ErrMalformedExpression, lt.ID, data.Raw, err)
	}
	return v, nil
}

// decodeData converts constant data to its row representation. Dates are days
// since the epoch, times are microseconds since midnight and timestamps count
// units of their precision since the epoch.
func decodeData(data gjson.Result, id LogicalTypeID) (any, error) {
	switch id {
	case TypeIDBoolean:
		if data.Type != gjson.True && data.Type != gjson.False {
			return nil, errors.New("not a boolean")
		}
		return data.Bool(), nil

	case TypeIDTinyInt, TypeIDSmallInt, TypeIDInteger, TypeIDBigInt:
		return integer(data)

	case TypeIDUTinyInt, TypeIDUSmallInt, TypeIDUInteger, TypeIDUBigInt:
		if data.Type != gjson.Number {
			return nil, errors.New("not a number")
		}
		return strconv.ParseUint(data.Raw, 10, 64)

	case TypeIDFloat, TypeIDDouble:
		if data.Type != gjson.Number {
			return nil, errors.New("not a number")
		}
		return data.Float(), nil

	case TypeIDDecimal:
		switch data.Type {
		case gjson.String:
			return decimal.NewFromString(data.Str)
		case gjson.Number:
			return decimal.NewFromString(data.Raw)
		}
		return nil, errors.New("not a decimal")

	case TypeIDVarchar, TypeIDChar:
		if data.Type == gjson.String {
			return data.Str, nil
		}
		b, err := decodeBase64(data)
		if err != nil {
			return nil, err
		}
		return string(b), nil

	case TypeIDBlob:
		if data.Type == gjson.String {
			return []byte(data.Str), nil
		}
		return decodeBase64(data)

	case TypeIDDate:
		days, err := integer(data)
		if err != nil {
			return nil, err
		}
		return time.Unix(days*86400, 0).UTC(), nil

	case TypeIDTime:
		micros, err := integer(data)
		if err != nil {
			return nil, err
		}
		return time.Duration(micros) * time.Microsecond, nil

	case TypeIDTimestampSec, TypeIDTimestampMs, TypeIDTimestamp, TypeIDTimestampNs, TypeIDTimestampTZ:
		n, err := integer(data)
		if err != nil {
			return nil, err
		}
		switch id {
		case TypeIDTimestampSec:
			return time.Unix(n, 0).UTC(), nil
		case TypeIDTimestampMs:
			return time.UnixMilli(n).UTC(), nil
		case TypeIDTimestampNs:
			return time.Unix(0, n).UTC(), nil
		}
		return time.UnixMicro(n).UTC(), nil
	}

	// Untyped constants keep their JSON form; numbers become float64.
	return data.Value(), nil
}

func integer(data gjson.Result) (int64, error) {
	if data.Type != gjson.Number {
		return 0, errors.New("not a number")
	}
	return strconv.ParseInt(data.Raw, 10, 64)
}

// decodeBase64 reads the {"base64": "..."} form used for non-UTF8 strings and blobs.
func decodeBase64(data gjson.Result) ([]byte, error) {
	encoded := data.Get("base64")
	if encoded.Type != gjson.String {
		return nil, errors.New("expected a string or a base64 object")
	}
	return base64.StdEncoding.DecodeString(encoded.Str)
}
