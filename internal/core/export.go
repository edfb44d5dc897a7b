package core

// export.go builds downloadable artifacts from rows and a column schema.
//
// The xlsx export writes two sheets:
//  1. "Data": header row plus one row per record, with computed column widths,
//     a frozen header row and leading columns, locked header and key cells,
//     and list validation on boolean/category cells.
//  2. "__export_metadata": hidden, cell A1 holds the JSON-encoded schema so a
//     re-uploaded file can be reconstructed (see parse.go).
//
// Category expansion happens in the caller; the exporter writes the columns
// it is given.

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DataSheetName is the name of the exported data sheet.
const DataSheetName = "Data"

// Column width bounds, in characters.
const (
	MinColumnWidth   = 10
	MaxColumnWidth   = 60
	ColumnWidthPad   = 2
	DefaultFreezeCol = 1
)

// Content types of the exported artifacts.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// Destination receives a finished export, e.g. an HTTP response or a directory.
type Destination interface {
	Deliver(ctx context.Context, fileName, contentType string, data []byte) error
}

// DestinationFunc adapts a function to Destination.
type DestinationFunc func(ctx context.Context, fileName, contentType string, data []byte) error

// Deliver calls f.
func (f DestinationFunc) Deliver(ctx context.Context, fileName, contentType string, data []byte) error {
	return f(ctx, fileName, contentType, data)
}

// ExportOptions configures an xlsx export.
type ExportOptions struct {
	// Metadata holds extension fields merged into the metadata sheet.
	Metadata map[string]any
	// FreezeColumns is the number of leading columns frozen and locked (default 1).
	FreezeColumns int
	// Password guards locked cells. Empty still protects the sheet.
	Password string
}

// ExportResult reports the outcome of an export. Export functions never
// return an error value; failures are reported through Success and Error.
type ExportResult struct {
	FileName string `json:"fileName"`
	Rows     int    `json:"rows"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Exporter writes rows to xlsx, CSV and JSON artifacts.
type Exporter struct {
	backend WorkbookBackend
	dst     Destination
}

// NewExporter creates an Exporter that builds workbooks with backend and
// hands finished files to dst.
func NewExporter(backend WorkbookBackend, dst Destination) *Exporter {
	return &Exporter{backend: backend, dst: dst}
}

// ExportToExcel writes rows to "<filenameBase>.xlsx".
func (e *Exporter) ExportToExcel(ctx context.Context, rows []Row, columns ColumnSchema, filenameBase string, opts ExportOptions) (result ExportResult) {
	result = ExportResult{FileName: filenameBase + ".xlsx", Rows: len(rows)}
	defer recoverExport(&result)

	data, err := e.BuildWorkbook(rows, columns, opts)
	if err != nil {
		return failExport(ctx, result, err)
	}
	if err := e.dst.Deliver(ctx, result.FileName, ContentTypeXLSX, data); err != nil {
		return failExport(ctx, result, fmt.Errorf("deliver %s: %w", result.FileName, err))
	}

	result.Success = true
	return result
}

// ExportToCSV writes rows to "<filenameBase>.csv" with a header row and no
// metadata.
func (e *Exporter) ExportToCSV(ctx context.Context, rows []Row, columns ColumnSchema, filenameBase string) (result ExportResult) {
	result = ExportResult{FileName: filenameBase + ".csv", Rows: len(rows)}
	defer recoverExport(&result)

	if err := columns.Validate(); err != nil {
		return failExport(ctx, result, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns.Headers()); err != nil {
		return failExport(ctx, result, fmt.Errorf("write header: %w", err))
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			v, _ := row.Get(col.Key)
			record[i] = stringifyValue(exportCellValue(col, v))
		}
		if err := w.Write(record); err != nil {
			return failExport(ctx, result, fmt.Errorf("write row: %w", err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return failExport(ctx, result, fmt.Errorf("flush csv: %w", err))
	}

	if err := e.dst.Deliver(ctx, result.FileName, ContentTypeCSV, buf.Bytes()); err != nil {
		return failExport(ctx, result, fmt.Errorf("deliver %s: %w", result.FileName, err))
	}
	result.Success = true
	return result
}

// ExportToJSON writes rows to "<filenameBase>.json" as an array of objects
// keyed by column key, in the rows' own key order.
func (e *Exporter) ExportToJSON(ctx context.Context, rows []Row, filenameBase string) (result ExportResult) {
	result = ExportResult{FileName: filenameBase + ".json", Rows: len(rows)}
	defer recoverExport(&result)

	if rows == nil {
		rows = []Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return failExport(ctx, result, fmt.Errorf("serialization failed: %w", err))
	}
	if err := e.dst.Deliver(ctx, result.FileName, ContentTypeJSON, data); err != nil {
		return failExport(ctx, result, fmt.Errorf("deliver %s: %w", result.FileName, err))
	}
	result.Success = true
	return result
}

// BuildWorkbook renders rows and columns into xlsx bytes.
func (e *Exporter) BuildWorkbook(rows []Row, columns ColumnSchema, opts ExportOptions) ([]byte, error) {
	if err := columns.Validate(); err != nil {
		return nil, err
	}
	freeze := opts.FreezeColumns
	if freeze < 1 {
		freeze = DefaultFreezeCol
	}

	wb, err := e.backend.NewWorkbook()
	if err != nil {
		return nil, fmt.Errorf("serialization failed: new workbook: %w", err)
	}
	defer wb.Close()

	if err := writeDataSheet(wb, rows, columns, freeze, opts.Password); err != nil {
		return nil, fmt.Errorf("serialization failed: %w", err)
	}
	if err := writeMetadataSheet(wb, columns, opts.Metadata); err != nil {
		return nil, fmt.Errorf("serialization failed: %w", err)
	}

	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialization failed: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportRows converts domain rows into sheet rows keyed by header. Values are
// stringified except in number columns; nil becomes "".
func ExportRows(rows []Row, columns ColumnSchema) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		var er Row
		for _, col := range columns {
			v, _ := row.Get(col.Key)
			er.Set(col.Header, exportCellValue(col, v))
		}
		out[i] = er
	}
	return out
}

// ColumnWidths computes each column's width from its header and cell text:
// clamp(max(len(header), max len(cell)) + 2, 10, 60).
func ColumnWidths(sheetRows []Row, columns ColumnSchema) []float64 {
	widths := make([]float64, len(columns))
	for i, col := range columns {
		longest := utf8.RuneCountInString(col.Header)
		for _, r := range sheetRows {
			v, _ := r.Get(col.Header)
			if n := utf8.RuneCountInString(stringifyValue(v)); n > longest {
				longest = n
			}
		}
		w := longest + ColumnWidthPad
		if w < MinColumnWidth {
			w = MinColumnWidth
		}
		if w > MaxColumnWidth {
			w = MaxColumnWidth
		}
		widths[i] = float64(w)
	}
	return widths
}

// FrozenPane returns the view freezing the header row and the first
// freezeColumns columns.
func FrozenPane(freezeColumns int) FreezePane {
	return FreezePane{
		State:       "frozen",
		XSplit:      freezeColumns,
		YSplit:      1,
		TopLeftCell: CellName(freezeColumns+1, 2),
	}
}

// exportCellValue returns the value written to a cell of col.
func exportCellValue(col ColumnDefinition, v any) any {
	if v == nil {
		return ""
	}
	if col.Type == TypeNumber {
		if f, ok := numericValue(v); ok {
			return f
		}
		return stringifyValue(v)
	}
	if b, ok := v.(bool); ok && col.IsBooleanLike() {
		return FormatBoolToken(b)
	}
	return stringifyValue(v)
}

// ValidatedRows is the last sheet row boolean list validations reach when the
// export has fewer rows, so rows added below the data are checked as well.
const ValidatedRows = 1000

// dataCellStyle is the style of a data cell in column colNum. Only the frozen
// key columns stay locked.
func dataCellStyle(col ColumnDefinition, colNum, freeze int) CellStyle {
	return CellStyle{
		Locked:   colNum <= freeze,
		Centered: col.IsBooleanLike(),
		WrapText: col.WrapText,
	}
}

func writeDataSheet(wb WorkbookWriter, rows []Row, columns ColumnSchema, freeze int, password string) error {
	sheet := DataSheetName
	if err := wb.AddSheet(sheet); err != nil {
		return fmt.Errorf("add sheet %q: %w", sheet, err)
	}

	// Cells without a style of their own are locked under protection, so the
	// column default carries the data-cell style for rows typed in later.
	for c, col := range columns {
		if err := wb.SetColumnStyle(sheet, c+1, dataCellStyle(col, c+1, freeze)); err != nil {
			return fmt.Errorf("style column %q: %w", col.Header, err)
		}
	}

	for c, col := range columns {
		colNum := c + 1
		if err := wb.SetCell(sheet, colNum, 1, col.Header); err != nil {
			return fmt.Errorf("write header %q: %w", col.Header, err)
		}
		if err := wb.SetCellStyle(sheet, colNum, 1, CellStyle{Locked: true, Bold: true, Centered: col.IsBooleanLike()}); err != nil {
			return fmt.Errorf("style header %q: %w", col.Header, err)
		}
	}

	sheetRows := ExportRows(rows, columns)
	for r, sr := range sheetRows {
		rowNum := r + 2
		for c, col := range columns {
			colNum := c + 1
			v, _ := sr.Get(col.Header)
			if err := wb.SetCell(sheet, colNum, rowNum, v); err != nil {
				return fmt.Errorf("write %s: %w", CellName(colNum, rowNum), err)
			}
			if err := wb.SetCellStyle(sheet, colNum, rowNum, dataCellStyle(col, colNum, freeze)); err != nil {
				return fmt.Errorf("style %s: %w", CellName(colNum, rowNum), err)
			}
		}
	}

	for c, w := range ColumnWidths(sheetRows, columns) {
		if err := wb.SetColumnWidth(sheet, c+1, w); err != nil {
			return fmt.Errorf("set width of column %d: %w", c+1, err)
		}
	}

	if err := wb.SetFreezePane(sheet, FrozenPane(freeze)); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	for c, col := range columns {
		if !col.IsBooleanLike() {
			continue
		}
		v := ListValidation{
			Column:     c + 1,
			FirstRow:   2,
			LastRow:    max(len(rows)+1, ValidatedRows),
			Tokens:     BoolTokens,
			ErrorStyle: "stop",
			ErrorTitle: "Invalid value",
			ErrorText:  "Use + or - (also accepted: TRUE, FALSE, X, ✓, 1, 0, YES, NO)",
		}
		if err := wb.AddListValidation(sheet, v); err != nil {
			return fmt.Errorf("validation for %q: %w", col.Header, err)
		}
	}

	if err := wb.ProtectSheet(sheet, password); err != nil {
		return fmt.Errorf("protect sheet: %w", err)
	}
	return nil
}

func writeMetadataSheet(wb WorkbookWriter, columns ColumnSchema, extensions map[string]any) error {
	text, err := EncodeMetadata(columns, extensions)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := wb.AddSheet(MetadataSheetName); err != nil {
		return fmt.Errorf("add sheet %q: %w", MetadataSheetName, err)
	}
	if err := wb.SetCell(MetadataSheetName, 1, 1, text); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := wb.HideSheet(MetadataSheetName); err != nil {
		return fmt.Errorf("hide metadata sheet: %w", err)
	}
	return nil
}

func failExport(ctx context.Context, result ExportResult, err error) ExportResult {
	logFromContext(ctx).Error("export failed", "file", result.FileName, "error", err)
	result.Success = false
	result.Error = err.Error()
	return result
}

func recoverExport(result *ExportResult) {
	if r := recover(); r != nil {
		result.Success = false
		result.Error = fmt.Sprintf("serialization failed: %v", r)
	}
}
