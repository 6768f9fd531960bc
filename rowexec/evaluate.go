// Package rowexec applies a predicate and a projection list to batches of rows.
//
// Rows are fixed-arity slices of values in the representation used by
// filter.Eval. Evaluation is a single order-preserving pass with no shared state,
// so independent batches may be evaluated concurrently.
package rowexec

import (
	"fmt"

	"github.com/hugr-lab/filetable/filter"
)

// Row is one tuple of column values.
type Row []any

// PredicateIndex is the ExpressionIndex reported for predicate failures.
const PredicateIndex = -1

// RowEvaluationError reports the expression and row that failed to evaluate.
type RowEvaluationError struct {
	// ExpressionIndex is the position in the projection list, or PredicateIndex.
	ExpressionIndex int
	// RowIndex is the position in the evaluated rows. File scans report it from
	// the start of the scan.
	RowIndex   int
	Expression filter.Expression
	Err        error
}

func (e *RowEvaluationError) Error() string {
	what := fmt.Sprintf("projection %d", e.ExpressionIndex)
	if e.ExpressionIndex == PredicateIndex {
		what = "predicate"
	}
	return fmt.Sprintf("row %d: evaluating %s [%s]: %v", e.RowIndex, what, filter.Format(e.Expression), e.Err)
}

func (e *RowEvaluationError) Unwrap() error { return e.Err }

// Evaluate filters rows by predicate and maps the survivors through projections.
//
// A nil predicate keeps every row; a NULL predicate result drops the row. A nil
// projection list emits the original rows; any other list, including an empty
// one, emits new rows of len(projections) values evaluated in list order. The
// first evaluation failure aborts the batch.
func Evaluate(predicate filter.Expression, projections []filter.Expression, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for i, row := range rows {
		if predicate != nil {
			keep, err := accept(predicate, row)
			if err != nil {
				return nil, &RowEvaluationError{ExpressionIndex: PredicateIndex, RowIndex: i, Expression: predicate, Err: err}
			}
			if !keep {
				continue
			}
		}

		if projections == nil {
			out = append(out, row)
			continue
		}

		projected := make(Row, len(projections))
		for j, expr := range projections {
			v, err := filter.Eval(expr, row)
			if err != nil {
				return nil, &RowEvaluationError{ExpressionIndex: j, RowIndex: i, Expression: expr, Err: err}
			}
			projected[j] = v
		}
		out = append(out, projected)
	}
	return out, nil
}

func accept(predicate filter.Expression, row Row) (bool, error) {
	v, err := filter.Eval(predicate, row)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	default:
		return false, fmt.Errorf("%w: predicate yields %T", filter.ErrTypeMismatch, v)
	}
}
