// Package filetable exposes files as SQL tables: the CSV_FILE, JSONL_FILE,
// AVRO_FILE and PARQUET_FILE table functions, and named mapping tables over
// the same file formats.
//
// A table function call is compiled in two steps. RowType extracts the
// constant VARCHAR arguments (path, glob, sharedFileSystem and a MAP of
// format options), samples one record from the matched files and returns the
// row type as an Arrow schema. Execute streams the files as Arrow record
// batches, evaluating an optional filter and projection per row.
//
// # Quick Start
//
//	functions, err := filetable.InitFunctionTable(filetable.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fn, _ := functions.Lookup("csv_file")
//
//	operands := []argument.Node{
//	    argument.CharLiteral("/data"),
//	    argument.CharLiteral("users*.csv"),
//	}
//	schema, err := fn.RowType(ctx, operands)
//	...
//	reader, err := fn.Execute(ctx, operands, &catalog.ScanOptions{Limit: 100})
//	defer reader.Release()
//
// # Catalogs
//
// CatalogBuilder assembles a static catalog of simple tables, mapping tables
// and table functions:
//
//	cat, err := filetable.NewCatalogBuilder(filetable.Config{}).
//	    Schema("files").
//	        FileFunctions().
//	    Schema("main").
//	        Mapping(filetable.MappingDef{
//	            Name:    "users",
//	            Format:  "csv",
//	            Options: map[string]any{"path": "/data", "glob": "users.csv"},
//	        }).
//	    Build(ctx)
//
// Mapping tables with declared fields are resolved without touching the files.
// ExportColumns serializes the columns of a catalog for clients.
//
// # Scan Options
//
// catalog.ScanOptions carries the column list, a JSON filter, a JSON list of
// projection expressions, a row limit and a batch size. Filter column
// references address positions in the row type. A filter evaluating to NULL
// drops the row.
//
// # Logging
//
// Config.Logger receives all internal logging. slog.Default() is used when it
// is nil.
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// RecordReaders returned by Execute and Scan.
package filetable
