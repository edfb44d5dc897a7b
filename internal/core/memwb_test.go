package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// memBackend is an in-memory WorkbookBackend. Written workbooks serialize to
// JSON so they can be parsed back through OpenWorkbook.
type memBackend struct {
	last *memWorkbook
	// failOn makes the named writer method return an error.
	failOn string
}

func (b *memBackend) NewWorkbook() (WorkbookWriter, error) {
	b.last = &memWorkbook{sheets: map[string]*memSheet{}, failOn: b.failOn}
	return b.last, nil
}

func (b *memBackend) OpenWorkbook(r io.Reader) (WorkbookReader, error) {
	var snap memSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("not a workbook: %w", err)
	}
	return &snap, nil
}

type cellRef struct{ col, row int }

type memSheet struct {
	cells       map[cellRef]any
	styles      map[cellRef]CellStyle
	colStyles   map[int]CellStyle
	widths      map[int]float64
	pane        *FreezePane
	validations []ListValidation
	protected   bool
	password    string
	hidden      bool
}

type memWorkbook struct {
	order  []string
	sheets map[string]*memSheet
	failOn string
	closed bool
}

func (wb *memWorkbook) fail(method string) error {
	if wb.failOn == method {
		return errors.New(method + " failed")
	}
	return nil
}

func (wb *memWorkbook) sheet(name string) (*memSheet, error) {
	s, ok := wb.sheets[name]
	if !ok {
		return nil, fmt.Errorf("sheet %s does not exist", name)
	}
	return s, nil
}

func (wb *memWorkbook) AddSheet(name string) error {
	if err := wb.fail("AddSheet"); err != nil {
		return err
	}
	wb.order = append(wb.order, name)
	wb.sheets[name] = &memSheet{
		cells:  map[cellRef]any{},
		styles:    map[cellRef]CellStyle{},
		colStyles: map[int]CellStyle{},
		widths:    map[int]float64{},
	}
	return nil
}

func (wb *memWorkbook) SetCell(sheet string, col, row int, value any) error {
	if err := wb.fail("SetCell"); err != nil {
		return err
	}
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.cells[cellRef{col, row}] = value
	return nil
}

func (wb *memWorkbook) SetCellStyle(sheet string, col, row int, style CellStyle) error {
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.styles[cellRef{col, row}] = style
	return nil
}

func (wb *memWorkbook) SetColumnStyle(sheet string, col int, style CellStyle) error {
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.colStyles[col] = style
	for ref := range s.cells {
		if ref.col == col {
			s.styles[ref] = style
		}
	}
	return nil
}

func (wb *memWorkbook) SetColumnWidth(sheet string, col int, width float64) error {
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.widths[col] = width
	return nil
}

func (wb *memWorkbook) SetFreezePane(sheet string, pane FreezePane) error {
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.pane = &pane
	return nil
}

func (wb *memWorkbook) AddListValidation(sheet string, v ListValidation) error {
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.validations = append(s.validations, v)
	return nil
}

func (wb *memWorkbook) ProtectSheet(sheet, password string) error {
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.protected = true
	s.password = password
	return nil
}

func (wb *memWorkbook) HideSheet(sheet string) error {
	s, err := wb.sheet(sheet)
	if err != nil {
		return err
	}
	s.hidden = true
	return nil
}

func (wb *memWorkbook) WriteTo(w io.Writer) (int64, error) {
	if err := wb.fail("WriteTo"); err != nil {
		return 0, err
	}
	snap := memSnapshot{}
	for _, name := range wb.order {
		snap.Sheets = append(snap.Sheets, memSheetSnapshot{Name: name, Rows: wb.sheets[name].grid()})
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

func (wb *memWorkbook) Close() error {
	wb.closed = true
	return nil
}

// grid renders the cells as display strings, dropping trailing empty cells.
func (s *memSheet) grid() [][]string {
	maxRow := 0
	for ref := range s.cells {
		if ref.row > maxRow {
			maxRow = ref.row
		}
	}
	rows := make([][]string, maxRow)
	for ref, v := range s.cells {
		row := rows[ref.row-1]
		for len(row) < ref.col {
			row = append(row, "")
		}
		row[ref.col-1] = stringifyValue(v)
		rows[ref.row-1] = row
	}
	for i, row := range rows {
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		rows[i] = row
	}
	return rows
}

// style returns the style a cell renders with, falling back to its column.
func (s *memSheet) style(col, row int) CellStyle {
	if st, ok := s.styles[cellRef{col, row}]; ok {
		return st
	}
	return s.colStyles[col]
}

func (s *memSheet) value(col, row int) any {
	return s.cells[cellRef{col, row}]
}

type memSheetSnapshot struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

type memSnapshot struct {
	Sheets []memSheetSnapshot `json:"sheets"`
}

func (m *memSnapshot) SheetNames() []string {
	names := make([]string, len(m.Sheets))
	for i, s := range m.Sheets {
		names[i] = s.Name
	}
	return names
}

func (m *memSnapshot) find(sheet string) (*memSheetSnapshot, error) {
	for i := range m.Sheets {
		if m.Sheets[i].Name == sheet {
			return &m.Sheets[i], nil
		}
	}
	return nil, fmt.Errorf("sheet %s does not exist", sheet)
}

func (m *memSnapshot) Rows(sheet string) ([][]string, error) {
	s, err := m.find(sheet)
	if err != nil {
		return nil, err
	}
	return s.Rows, nil
}

func (m *memSnapshot) Cell(sheet, ref string) (string, error) {
	s, err := m.find(sheet)
	if err != nil {
		return "", err
	}
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return "", err
	}
	if row > len(s.Rows) || col > len(s.Rows[row-1]) {
		return "", nil
	}
	return s.Rows[row-1][col-1], nil
}

func (m *memSnapshot) Close() error { return nil }

// memWorkbookBytes builds a snapshot directly, for parse tests that need a
// hand-made workbook.
func memWorkbookBytes(sheets ...memSheetSnapshot) []byte {
	b, _ := json.Marshal(memSnapshot{Sheets: sheets})
	return b
}
