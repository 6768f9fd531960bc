// Package filter defines the row expression tree used by file table functions:
// a closed set of bound expressions that reference row slots by index, parsed from
// the JSON plan format and evaluated over in-memory rows.
//
// # Basic Usage
//
// Parse a filter received in scan options and evaluate it per row:
//
//	fp, err := filter.Parse(scanOpts.Filter)
//	if err != nil {
//	    return err // Malformed JSON
//	}
//	pred := fp.Predicate()
//
//	v, err := filter.Eval(pred, []any{int64(1), "a"})
//	keep := v == true
//
// Expressions may also be built directly:
//
//	pred := filter.Compare(filter.TypeCompareNotEqual,
//	    filter.Col(0, filter.TypeIDBigInt), filter.Int(1))
//	proj := filter.Call("*", filter.TypeIDBigInt,
//	    filter.Col(0, filter.TypeIDBigInt), filter.Int(2))
//
// # Row Values
//
// Row slots hold nil for NULL, bool, Go integer and float types, string, []byte,
// time.Time for DATE and TIMESTAMP, and time.Duration since midnight for TIME.
//
// # Semantics
//
// Evaluation follows SQL three-valued logic. Comparisons and arithmetic with a
// NULL operand yield NULL; AND yields FALSE if any child is FALSE, OR yields TRUE if
// any child is TRUE. Integer division by zero fails with ErrDivisionByZero.
//
// Expression classes without evaluation rules (aggregates, window functions,
// parameters) parse into UnsupportedExpression and fail with
// ErrUnsupportedExpression when evaluated.
package filter
