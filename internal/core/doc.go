// Package core provides the tabular interchange engine: exporting records to
// self-describing spreadsheets and importing edited files back as validated,
// matched rows.
//
// The package has no UI or database dependencies. Workbooks are read and
// written through [WorkbookBackend] (see internal/xlsx) and persistence goes
// through [RecordStore] (see internal/store), so web handlers, the CLI and
// tests use the same code.
//
// # Export
//
// [Exporter.ExportToExcel] writes a "Data" sheet and a hidden
// "__export_metadata" sheet whose cell A1 holds the JSON column schema:
//
//	exp := core.NewExporter(xlsx.Backend{}, dst)
//	res := exp.ExportToExcel(ctx, rows, columns, "companies", core.ExportOptions{})
//	if !res.Success {
//	    log.Print(res.Error)
//	}
//
// Header cells and the first FreezeColumns columns are locked, the sheet is
// protected, and boolean/category columns (type boolean or key prefix
// "category:") get a list validation with the accepted tokens.
//
// # Import
//
// [Parser.Parse] dispatches on the file extension (.xlsx, .csv, .json) and
// returns rows keyed by the header text found in the file. When the metadata
// sheet is present, per-category columns are collapsed into one Categories
// field. Headers are matched with [NormalizeHeaderName], which ignores case,
// punctuation and separator differences.
//
// [MatchRecords] classifies each row as CREATE, UPDATE or ERROR. Rows are
// validated first ([SchemaValidator], [RuleValidator], [CategoryValidator]);
// invalid rows are never matched. [SanitizePayload] strips "_"-prefixed
// bookkeeping keys before anything reaches the store.
//
// # Datasets
//
// Datasets are registered at init time with [Register] (see
// internal/core/datasets). [Service] ties a dataset to the store for
// export, template download, preview and commit.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// category has a code for support reference (FILE, VAL, EXP, DB, DS, UPL,
// RATE). Parse failures are [FileFormatError] values wrapping
// [ErrUnsupportedFormat] or [ErrCorruptFile].
package core
