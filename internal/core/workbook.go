package core

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// WorkbookBackend creates and opens workbooks. The exporter and parser only
// talk to this interface; internal/xlsx provides the excelize implementation
// and tests provide an in-memory one.
type WorkbookBackend interface {
	NewWorkbook() (WorkbookWriter, error)
	OpenWorkbook(r io.Reader) (WorkbookReader, error)
}

// CellStyle is the per-cell presentation the exporter needs.
type CellStyle struct {
	Locked   bool
	Centered bool
	WrapText bool
	Bold     bool
}

// FreezePane describes a frozen sheet view.
type FreezePane struct {
	State       string `json:"state"`
	XSplit      int    `json:"xSplit"`
	YSplit      int    `json:"ySplit"`
	TopLeftCell string `json:"topLeftCell"`
}

// ListValidation restricts a column range to an enumerated list of tokens.
// Rows are 1-based and inclusive.
type ListValidation struct {
	Column     int
	FirstRow   int
	LastRow    int
	Tokens     []string
	ErrorStyle string
	ErrorTitle string
	ErrorText  string
}

// Sqref returns the A1-style range the validation covers.
func (v ListValidation) Sqref() string {
	first, _ := excelize.CoordinatesToCellName(v.Column, v.FirstRow)
	last, _ := excelize.CoordinatesToCellName(v.Column, v.LastRow)
	return first + ":" + last
}

// WorkbookWriter builds one workbook. Columns and rows are 1-based.
// The first sheet added becomes the active sheet.
type WorkbookWriter interface {
	AddSheet(name string) error
	SetCell(sheet string, col, row int, value any) error
	SetCellStyle(sheet string, col, row int, style CellStyle) error
	// SetColumnStyle sets the style of every cell in col that has none of
	// its own, including rows never written.
	SetColumnStyle(sheet string, col int, style CellStyle) error
	SetColumnWidth(sheet string, col int, width float64) error
	SetFreezePane(sheet string, pane FreezePane) error
	AddListValidation(sheet string, v ListValidation) error
	ProtectSheet(sheet, password string) error
	HideSheet(sheet string) error
	WriteTo(w io.Writer) (int64, error)
	Close() error
}

// WorkbookReader reads an opened workbook.
type WorkbookReader interface {
	SheetNames() []string
	// Rows returns the sheet's cells as display strings, one slice per row.
	// Trailing empty cells may be omitted.
	Rows(sheet string) ([][]string, error)
	Cell(sheet, ref string) (string, error)
	Close() error
}

// ColumnName converts a 1-based column number to its letter name.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}

// CellName converts 1-based coordinates to an A1-style reference.
func CellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	return name
}
