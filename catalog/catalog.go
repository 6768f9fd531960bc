// Package catalog defines the schemas, tables and table functions exposed by a
// file table catalog.
//
// Static catalogs are built once through the root package builder and are
// immutable afterwards. All interfaces are goroutine-safe and take a context for
// cancellation.
package catalog

import (
	"context"
	"errors"
)

// Sentinel errors for catalog lookups.
var (
	// ErrAlreadyExists is returned when registering a name twice.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned when a named object does not exist.
	ErrNotFound = errors.New("not found")
)

// Catalog is the top-level metadata container.
type Catalog interface {
	// Schemas returns all schemas, sorted by name.
	// Returns an empty slice (not nil) when the catalog has no schemas.
	Schemas(ctx context.Context) ([]Schema, error)

	// Schema returns a specific schema by name.
	// Returns (nil, nil) if the schema doesn't exist.
	Schema(ctx context.Context, name string) (Schema, error)
}

// Schema groups tables and table functions under one name.
type Schema interface {
	// Name returns the schema name. MUST be non-empty.
	Name() string

	// Comment returns optional schema documentation.
	Comment() string

	// Tables returns all tables in this schema, sorted by name.
	Tables(ctx context.Context) ([]Table, error)

	// Table returns a specific table by name.
	// Returns (nil, nil) if the table doesn't exist.
	Table(ctx context.Context, name string) (Table, error)

	// TableFunctions returns all table-valued functions in this schema, in
	// registration order.
	TableFunctions(ctx context.Context) ([]TableFunction, error)

	// TableFunction returns the function with the given name, ignoring case.
	// Returns (nil, nil) if the function doesn't exist.
	TableFunction(ctx context.Context, name string) (TableFunction, error)
}
