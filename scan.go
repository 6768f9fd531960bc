package filetable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"github.com/hugr-lab/filetable/catalog"
	"github.com/hugr-lab/filetable/file"
	"github.com/hugr-lab/filetable/filter"
	"github.com/hugr-lab/filetable/internal/recovery"
	"github.com/hugr-lab/filetable/rowexec"
	"github.com/hugr-lab/filetable/source"
)

// ErrInvalidScan indicates ScanOptions that cannot be applied to the row type.
var ErrInvalidScan = errors.New("invalid scan options")

// scanPlan is ScanOptions compiled against a row type.
type scanPlan struct {
	predicate filter.Expression

	// projections is nil when rows keep the row type.
	projections []filter.Expression

	schema    *arrow.Schema
	limit     int64
	batchSize int
}

func compileScan(rowType *arrow.Schema, opts *catalog.ScanOptions, defaultBatchSize int) (*scanPlan, error) {
	if opts == nil {
		opts = &catalog.ScanOptions{}
	}

	plan := &scanPlan{
		schema:    rowType,
		limit:     opts.Limit,
		batchSize: opts.BatchSize,
	}
	if plan.batchSize <= 0 {
		plan.batchSize = defaultBatchSize
	}

	fp, err := filter.Parse(opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScan, err)
	}
	for i, name := range fp.ColumnBindings {
		if i >= rowType.NumFields() || rowType.Field(i).Name != name {
			return nil, fmt.Errorf("%w: column binding %d (%s) does not match the row type", ErrInvalidScan, i, name)
		}
	}
	plan.predicate = fp.Predicate()

	switch {
	case opts.Projection != nil:
		plan.projections, err = filter.ParseExpressions(opts.Projection)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScan, err)
		}
		if plan.schema, err = rowexec.ProjectedSchema(plan.projections); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScan, err)
		}
	case len(opts.Columns) > 0:
		indices, err := catalog.ColumnIndices(rowType, opts.Columns)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScan, err)
		}
		plan.projections = make([]filter.Expression, len(indices))
		for i, idx := range indices {
			field := rowType.Field(idx)
			plan.projections[i] = filter.WithAlias(filter.Col(idx, filter.LogicalTypeOf(field.Type).ID), field.Name)
		}
		plan.schema = catalog.ProjectSchema(rowType, opts.Columns)
	}

	return plan, nil
}

// scanFiles opens the source described by meta and streams it as record batches.
func scanFiles(ctx context.Context, s settings, meta *file.Metadata, opts *catalog.ScanOptions) (array.RecordReader, error) {
	rowType := meta.Schema()
	plan, err := compileScan(rowType, opts, s.batchSize)
	if err != nil {
		return nil, err
	}

	scan, err := recovery.Call(s.logger, "Open", func() (source.Scan, error) {
		return s.opener.Open(ctx, meta.Source)
	})
	if err == nil && scan == nil {
		err = errors.New("opener returned no scan")
	}
	if err != nil {
		return nil, fmt.Errorf("open %s source %s: %w", meta.Format, meta.Source.Path, err)
	}

	external := make([]string, len(meta.Fields))
	for i, f := range meta.Fields {
		external[i] = f.ExternalName
	}

	scanID := uuid.NewString()
	s.logger.Debug("Scanning file source",
		"scan_id", scanID,
		"format", meta.Format,
		"path", meta.Source.Path,
		"glob", meta.Source.Glob,
		"batch_size", plan.batchSize,
		"limit", plan.limit,
	)

	r := &fileReader{
		ctx:      ctx,
		logger:   s.logger.With("scan_id", scanID),
		mem:      s.allocator,
		scan:     scan,
		rowType:  rowType,
		external: external,
		plan:     plan,
	}
	r.refCount.Store(1)
	return r, nil
}

// fileReader streams a source scan as record batches of the plan schema.
type fileReader struct {
	refCount atomic.Int64

	ctx      context.Context
	logger   *slog.Logger
	mem      memory.Allocator
	scan     source.Scan
	rowType  *arrow.Schema
	external []string
	plan     *scanPlan

	// layout and positions cache where each external attribute sits in records
	// shaped like the last one read.
	layout    []string
	positions []int

	current arrow.RecordBatch
	read    int64
	emitted int64
	err     error
	done    bool
}

func (r *fileReader) Schema() *arrow.Schema          { return r.plan.schema }
func (r *fileReader) Record() arrow.RecordBatch      { return r.current }
func (r *fileReader) RecordBatch() arrow.RecordBatch { return r.current }
func (r *fileReader) Err() error                     { return r.err }
func (r *fileReader) Retain()                        { r.refCount.Add(1) }

func (r *fileReader) Release() {
	if r.refCount.Add(-1) == 0 {
		r.releaseCurrent()
		r.finish()
	}
}

func (r *fileReader) Next() bool {
	r.releaseCurrent()

	for !r.done {
		if err := r.ctx.Err(); err != nil {
			r.fail(err)
			return false
		}

		offset := r.read
		rows, err := r.readRows()
		if err != nil {
			r.fail(err)
			return false
		}
		if len(rows) == 0 {
			continue
		}

		rec, err := r.evaluate(rows, offset)
		if err != nil {
			r.fail(err)
			return false
		}
		if rec.NumRows() == 0 {
			rec.Release()
			continue
		}

		r.current = rec
		r.emitted += rec.NumRows()
		if r.plan.limit > 0 && r.emitted >= r.plan.limit {
			r.finish()
		}
		return true
	}
	return false
}

// readRows reads up to one batch of raw rows in field order. Attributes missing
// from a record are NULL.
func (r *fileReader) readRows() ([]rowexec.Row, error) {
	rows := make([]rowexec.Row, 0, r.plan.batchSize)
	for len(rows) < r.plan.batchSize {
		rec, err := recovery.Call(r.logger, "Next", r.scan.Next)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			r.finish()
			break
		}

		r.locate(rec.Attributes)
		row := make(rowexec.Row, len(r.external))
		for i, pos := range r.positions {
			if pos >= 0 {
				row[i] = rec.Attributes[pos].Value
			}
		}
		rows = append(rows, row)
		r.read++
	}
	return rows, nil
}

// locate points positions at the external attributes of attrs. The first
// attribute of a name wins; positions stay as they are while the layout repeats.
func (r *fileReader) locate(attrs []source.Attribute) {
	if len(attrs) == len(r.layout) {
		same := true
		for i, a := range attrs {
			if a.Name != r.layout[i] {
				same = false
				break
			}
		}
		if same {
			return
		}
	}

	index := make(map[string]int, len(attrs))
	r.layout = r.layout[:0]
	for i, a := range attrs {
		if _, ok := index[a.Name]; !ok {
			index[a.Name] = i
		}
		r.layout = append(r.layout, a.Name)
	}
	if r.positions == nil {
		r.positions = make([]int, len(r.external))
	}
	for i, name := range r.external {
		pos, ok := index[name]
		if !ok {
			pos = -1
		}
		r.positions[i] = pos
	}
}

// evaluate coerces raw rows to the row type and applies the plan. offset is the
// number of rows read before this batch.
func (r *fileReader) evaluate(rows []rowexec.Row, offset int64) (arrow.RecordBatch, error) {
	if r.plan.predicate == nil && r.plan.projections == nil {
		return rowexec.BuildRecord(r.mem, r.rowType, r.truncate(rows))
	}

	coerced, err := rowexec.BuildRecord(r.mem, r.rowType, rows)
	if err != nil {
		return nil, err
	}
	typed, err := rowexec.RecordRows(coerced)
	coerced.Release()
	if err != nil {
		return nil, err
	}

	out, err := rowexec.Evaluate(r.plan.predicate, r.plan.projections, typed)
	if err != nil {
		var rowErr *rowexec.RowEvaluationError
		if errors.As(err, &rowErr) {
			rowErr.RowIndex += int(offset)
		}
		return nil, err
	}
	return rowexec.BuildRecord(r.mem, r.plan.schema, r.truncate(out))
}

func (r *fileReader) truncate(rows []rowexec.Row) []rowexec.Row {
	if r.plan.limit <= 0 {
		return rows
	}
	if remaining := r.plan.limit - r.emitted; int64(len(rows)) > remaining {
		return rows[:remaining]
	}
	return rows
}

func (r *fileReader) releaseCurrent() {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
}

func (r *fileReader) fail(err error) {
	r.logger.Debug("Scan failed", "error", err)
	r.err = err
	r.finish()
}

// finish closes the scan once.
func (r *fileReader) finish() {
	if r.done {
		return
	}
	r.done = true
	if err := recovery.Do(r.logger, "Close", r.scan.Close); err != nil && r.err == nil {
		r.err = err
	}
}
