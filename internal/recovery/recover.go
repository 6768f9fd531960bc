// Package recovery converts panics raised by user-provided collaborators into errors.
// Openers and scans are supplied by callers; a panic in one of them must fail the
// query, not the process.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanic is wrapped by every error produced from a recovered panic.
var ErrPanic = errors.New("panic recovered")

// Call runs fn and returns its result. If fn panics, the panic is logged with its
// stack and returned as an error wrapping ErrPanic.
//
//	scan, err := recovery.Call(logger, "Open", func() (source.Scan, error) {
//	    return opener.Open(ctx, opts)
//	})
func Call[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			var zero T
			result = zero
			err = fmt.Errorf("%w: %s: %v", ErrPanic, operation, r)
		}
	}()

	return fn()
}

// Do is Call for functions that only return an error.
func Do(logger *slog.Logger, operation string, fn func() error) error {
	_, err := Call(logger, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
