package core

// parse.go reads uploaded artifacts back into raw rows keyed by header.
//
// Dispatch is by file extension. For xlsx the data sheet is the first sheet
// that is not the metadata sheet; when the metadata sheet decodes, category
// columns are collapsed back into a single Categories field. CSV and JSON
// carry no metadata and pass through as read.

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EmptyHeaderName is the key given to cells under a blank header.
const EmptyHeaderName = "__EMPTY"

// Supported input formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ParseResult is the outcome of parsing one file. Data is nil exactly when
// Err is non-nil; a valid file without rows yields an empty, non-nil Data.
type ParseResult struct {
	Data     []Row     `json:"data"`
	Metadata *Metadata `json:"metadata"`
	Err      error     `json:"-"`
}

// Parser turns uploaded files into rows.
type Parser struct {
	backend     WorkbookBackend
	maxFileSize int64
}

// NewParser creates a Parser. Files larger than maxFileSize bytes are
// rejected; maxFileSize <= 0 disables the check.
func NewParser(backend WorkbookBackend, maxFileSize int64) *Parser {
	return &Parser{backend: backend, maxFileSize: maxFileSize}
}

// FormatOf returns the input format for a file name, or "" if unsupported.
func FormatOf(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	}
	return ""
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string) ParseResult {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{Err: NewFileFormatError(filepath.Base(path), FormatOf(path), err)}
	}
	defer f.Close()
	return p.Parse(ctx, filepath.Base(path), f)
}

// Parse reads r as the format implied by fileName's extension.
func (p *Parser) Parse(ctx context.Context, fileName string, r io.Reader) ParseResult {
	logger := logFromContext(ctx).With("file", fileName)

	format := FormatOf(fileName)
	if format == "" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
		return ParseResult{Err: NewFileFormatError(fileName, ext, ErrUnsupportedFormat)}
	}
	if err := ctx.Err(); err != nil {
		return ParseResult{Err: err}
	}

	var (
		result ParseResult
		err    error
	)
	switch format {
	case FormatXLSX:
		result, err = p.parseWorkbook(ctx, r)
	case FormatCSV:
		result.Data, err = p.parseCSV(r)
	case FormatJSON:
		result.Data, err = p.parseJSON(r)
	}
	if err != nil {
		logger.Debug("parse failed", "format", format, "error", err)
		return ParseResult{Err: NewFileFormatError(fileName, format, err)}
	}

	if result.Data == nil {
		result.Data = []Row{}
	}
	logger.Debug("file parsed", "format", format, "rows", len(result.Data), "metadata", result.Metadata != nil)
	return result
}

func (p *Parser) parseWorkbook(ctx context.Context, r io.Reader) (ParseResult, error) {
	data, err := io.ReadAll(newSizeGuard(r, p.maxFileSize))
	if err != nil {
		return ParseResult{}, err
	}
	if len(data) == 0 {
		return ParseResult{}, fmt.Errorf("%w: zero-length workbook", ErrCorruptFile)
	}

	wb, err := p.backend.OpenWorkbook(bytes.NewReader(data))
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer wb.Close()

	var (
		dataSheet   string
		hasMetadata bool
	)
	for _, name := range wb.SheetNames() {
		if name == MetadataSheetName {
			hasMetadata = true
			continue
		}
		if dataSheet == "" {
			dataSheet = name
		}
	}

	var result ParseResult
	if hasMetadata {
		result.Metadata = readMetadata(ctx, wb)
	}
	if dataSheet == "" {
		result.Data = []Row{}
		return result, nil
	}

	records, err := wb.Rows(dataSheet)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: read sheet %q: %v", ErrCorruptFile, dataSheet, err)
	}
	result.Data = recordsToRows(records, false)

	if result.Metadata != nil && result.Metadata.Columns.HasCategories() {
		result.Data = CollapseCategories(ctx, result.Data, result.Metadata.Columns)
	}
	return result, nil
}

// readMetadata returns the decoded metadata sheet, or nil when it is
// unreadable or malformed.
func readMetadata(ctx context.Context, wb WorkbookReader) *Metadata {
	text, err := wb.Cell(MetadataSheetName, MetadataCell)
	if err != nil {
		logFromContext(ctx).Debug("metadata sheet unreadable", "error", err)
		return nil
	}
	md := DecodeMetadata(text)
	if md == nil {
		logFromContext(ctx).Debug("metadata sheet malformed, falling back to raw rows")
	}
	return md
}

func (p *Parser) parseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(textReader(newSizeGuard(r, p.maxFileSize)))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, errTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: invalid csv: %v", ErrCorruptFile, err)
		}
		records = append(records, rec)
	}
	return recordsToRows(records, true), nil
}

func (p *Parser) parseJSON(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(textReader(newSizeGuard(r, p.maxFileSize)))
	dec.UseNumber()

	wrap := func(err error) error {
		if errors.Is(err, errTooLarge) {
			return err
		}
		return fmt.Errorf("%w: invalid json: %v", ErrCorruptFile, err)
	}

	tok, err := dec.Token()
	if err == io.EOF {
		return []Row{}, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, wrap(errors.New("top-level value must be an array of objects"))
	}

	rows := []Row{}
	for dec.More() {
		row, err := decodeObject(dec)
		if err != nil {
			return nil, wrap(fmt.Errorf("element %d: %w", len(rows), err))
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, wrap(err)
	}
	return rows, nil
}

// recordsToRows turns a header record plus data records into rows keyed by
// header. Blank records are skipped and missing cells become "".
func recordsToRows(records [][]string, clean bool) []Row {
	if len(records) == 0 {
		return []Row{}
	}

	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	raw := make([]string, width)
	copy(raw, records[0])
	if clean {
		for i := range raw {
			raw[i] = cleanDecodedCell(raw[i])
		}
	}
	headers := UniqueHeaders(raw)

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isEmptyRecord(rec) {
			continue
		}
		var row Row
		for i, h := range headers {
			v := ""
			if i < len(rec) {
				v = rec[i]
				if clean {
					v = cleanDecodedCell(v)
				}
			}
			row.Set(h, v)
		}
		rows = append(rows, row)
	}
	return rows
}

// UniqueHeaders makes a header row usable as row keys: blank headers become
// __EMPTY, __EMPTY_1, ... and repeated headers get _1, _2 suffixes.
func UniqueHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		base := h
		if strings.TrimSpace(base) == "" {
			base = EmptyHeaderName
		}
		name := base
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// CollapseCategories replaces the per-category cells of each row with a
// single Categories field holding the comma-joined slugs whose cell is true.
// Category cells are located by their recorded header with the same
// tolerance as ResolveHeaderValue, once per distinct row key layout. Rows
// where no category header is found are returned unchanged. Input rows are
// not modified.
func CollapseCategories(ctx context.Context, rows []Row, columns ColumnSchema) []Row {
	cats := columns.CategoryColumns()
	if len(cats) == 0 {
		return rows
	}

	plans := make(map[string]collapsePlan)
	out := make([]Row, len(rows))
	unmatched := 0
	for i, row := range rows {
		layout := strings.Join(row.keys, "\x00")
		plan, ok := plans[layout]
		if !ok {
			plan = planCollapse(row.keys, cats)
			plans[layout] = plan
		}
		if len(plan.consumed) == 0 {
			unmatched++
			out[i] = row.Clone()
			continue
		}
		out[i] = plan.apply(row)
	}
	if unmatched > 0 {
		logFromContext(ctx).Debug("category headers not found", "rows", unmatched)
	}
	return out
}

// collapsePlan maps the category cells of one key layout to their slugs.
type collapsePlan struct {
	cells    []categoryCell // in category schema order
	consumed map[string]bool
}

type categoryCell struct {
	key  string
	slug string
}

// planCollapse assigns each category column the first row key with its
// normalized header that no earlier category has taken.
func planCollapse(keys []string, cats []ColumnDefinition) collapsePlan {
	normalized := make([]string, len(keys))
	for i, k := range keys {
		normalized[i] = NormalizeHeaderName(k)
	}

	plan := collapsePlan{consumed: make(map[string]bool, len(cats))}
	for _, col := range cats {
		want := NormalizeHeaderName(col.Header)
		if want == "" {
			continue
		}
		for i, key := range keys {
			if plan.consumed[key] || normalized[i] != want {
				continue
			}
			plan.consumed[key] = true
			plan.cells = append(plan.cells, categoryCell{key: key, slug: col.CategorySlug()})
			break
		}
	}
	return plan
}

func (p collapsePlan) apply(row Row) Row {
	var slugs []string
	for _, c := range p.cells {
		if b, ok := ParseBoolToken(row.values[c.key]); ok && b {
			slugs = append(slugs, c.slug)
		}
	}

	var out Row
	placed := false
	for _, key := range row.keys {
		switch {
		case p.consumed[key]:
			if !placed {
				out.Set(CategoriesField, strings.Join(slugs, ","))
				placed = true
			}
		case key == CategoriesField:
			// replaced by the collapsed value
		default:
			out.Set(key, row.values[key])
		}
	}
	return out
}
