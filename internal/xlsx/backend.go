// Package xlsx implements core.WorkbookBackend with excelize.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

// Backend creates and opens excelize workbooks.
type Backend struct {
	// Options are passed to excelize when opening workbooks.
	Options excelize.Options
}

// NewWorkbook implements core.WorkbookBackend.
func (b Backend) NewWorkbook() (core.WorkbookWriter, error) {
	return &writer{
		file:   excelize.NewFile(),
		styles: make(map[core.CellStyle]int),
	}, nil
}

// OpenWorkbook implements core.WorkbookBackend.
func (b Backend) OpenWorkbook(r io.Reader) (core.WorkbookReader, error) {
	f, err := excelize.OpenReader(r, b.Options)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &reader{file: f}, nil
}

// defaultSheet is the sheet excelize.NewFile starts with.
const defaultSheet = "Sheet1"

type writer struct {
	file   *excelize.File
	sheets int
	styles map[core.CellStyle]int
}

func (w *writer) AddSheet(name string) error {
	w.sheets++
	if w.sheets == 1 {
		return w.file.SetSheetName(defaultSheet, name)
	}
	_, err := w.file.NewSheet(name)
	return err
}

func (w *writer) SetCell(sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.file.SetCellValue(sheet, cell, value)
}

func (w *writer) SetCellStyle(sheet string, col, row int, style core.CellStyle) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	id, err := w.styleID(style)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, cell, cell, id)
}

func (w *writer) SetColumnStyle(sheet string, col int, style core.CellStyle) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	id, err := w.styleID(style)
	if err != nil {
		return err
	}
	return w.file.SetColStyle(sheet, name, id)
}

// styleID returns the excelize style for s, creating it on first use.
func (w *writer) styleID(s core.CellStyle) (int, error) {
	if id, ok := w.styles[s]; ok {
		return id, nil
	}

	style := &excelize.Style{
		Protection: &excelize.Protection{Locked: s.Locked},
		Alignment:  &excelize.Alignment{Vertical: "top", WrapText: s.WrapText},
	}
	if s.Centered {
		style.Alignment.Horizontal = "center"
	}
	if s.Bold {
		style.Font = &excelize.Font{Bold: true}
	}

	id, err := w.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("new style: %w", err)
	}
	w.styles[s] = id
	return id, nil
}

func (w *writer) SetColumnWidth(sheet string, col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	return w.file.SetColWidth(sheet, name, name, width)
}

func (w *writer) SetFreezePane(sheet string, pane core.FreezePane) error {
	return w.file.SetPanes(sheet, &excelize.Panes{
		Freeze:      pane.State == "frozen",
		XSplit:      pane.XSplit,
		YSplit:      pane.YSplit,
		TopLeftCell: pane.TopLeftCell,
		ActivePane:  "bottomRight",
		Selection: []excelize.Selection{
			{SQRef: pane.TopLeftCell, ActiveCell: pane.TopLeftCell, Pane: "bottomRight"},
		},
	})
}

func (w *writer) AddListValidation(sheet string, v core.ListValidation) error {
	dv := excelize.NewDataValidation(true)
	dv.Sqref = v.Sqref()
	if err := dv.SetDropList(v.Tokens); err != nil {
		return fmt.Errorf("drop list: %w", err)
	}
	dv.SetError(errorStyle(v.ErrorStyle), v.ErrorTitle, v.ErrorText)
	return w.file.AddDataValidation(sheet, dv)
}

func errorStyle(s string) excelize.DataValidationErrorStyle {
	switch s {
	case "warning":
		return excelize.DataValidationErrorStyleWarning
	case "information":
		return excelize.DataValidationErrorStyleInformation
	default:
		return excelize.DataValidationErrorStyleStop
	}
}

func (w *writer) ProtectSheet(sheet, password string) error {
	return w.file.ProtectSheet(sheet, &excelize.SheetProtectionOptions{
		Password:            password,
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
		FormatColumns:       true,
		FormatRows:          true,
		Sort:                true,
		AutoFilter:          true,
	})
}

func (w *writer) HideSheet(sheet string) error {
	return w.file.SetSheetVisible(sheet, false)
}

func (w *writer) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

func (w *writer) Close() error {
	return w.file.Close()
}

type reader struct {
	file *excelize.File
}

func (r *reader) SheetNames() []string {
	return r.file.GetSheetList()
}

func (r *reader) Rows(sheet string) ([][]string, error) {
	return r.file.GetRows(sheet)
}

func (r *reader) Cell(sheet, ref string) (string, error) {
	return r.file.GetCellValue(sheet, ref)
}

func (r *reader) Close() error {
	return r.file.Close()
}
