package core

// validation.go checks parsed rows before they are matched.
//
// Rows are raw (keyed by the uploaded header text), so every column is
// located through header resolution. Validators return all problems for a
// row so the preview can show them at once.

import (
	"fmt"
	"strings"
)

// ValidationError is a single per-row problem.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Validator checks one raw row.
type Validator interface {
	Validate(row Row) []ValidationError
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(row Row) []ValidationError

// Validate calls f.
func (f ValidatorFunc) Validate(row Row) []ValidationError { return f(row) }

// Validators runs every non-nil validator and concatenates their errors.
func Validators(vs ...Validator) Validator {
	return ValidatorFunc(func(row Row) []ValidationError {
		var errs []ValidationError
		for _, v := range vs {
			if v == nil {
				continue
			}
			errs = append(errs, v.Validate(row)...)
		}
		return errs
	})
}

// columnCandidates lists the header spellings accepted for col.
func columnCandidates(col ColumnDefinition) []string {
	out := make([]string, 0, len(col.Aliases)+2)
	out = append(out, col.Header)
	out = append(out, col.Aliases...)
	if col.Key != col.Header {
		out = append(out, col.Key)
	}
	return out
}

// rowColumns locates the collapsed columns of a schema on raw rows.
type rowColumns struct {
	columns ColumnSchema
	headers *headerResolver
}

func newRowColumns(columns ColumnSchema) *rowColumns {
	collapsed := columns.Collapsed()
	candidates := make([][]string, len(collapsed))
	for i, col := range collapsed {
		candidates[i] = columnCandidates(col)
	}
	return &rowColumns{columns: collapsed, headers: newHeaderResolver(candidates...)}
}

// each calls fn for every column found on row with its raw value, and with
// ok false for columns the row lacks.
func (c *rowColumns) each(row Row, fn func(col ColumnDefinition, raw any, ok bool)) {
	keys := c.headers.keys(row)
	for i, col := range c.columns {
		if keys[i] == "" {
			fn(col, nil, false)
			continue
		}
		raw, ok := row.Get(keys[i])
		fn(col, raw, ok)
	}
}

// SchemaValidator checks presence and type of every schema column.
type SchemaValidator struct {
	columns *rowColumns
}

// NewSchemaValidator creates a validator for rows shaped by columns.
// Category columns are expected in their collapsed Categories form.
func NewSchemaValidator(columns ColumnSchema) *SchemaValidator {
	return &SchemaValidator{columns: newRowColumns(columns)}
}

// Validate implements Validator.
func (v *SchemaValidator) Validate(row Row) []ValidationError {
	var errs []ValidationError

	v.columns.each(row, func(col ColumnDefinition, raw any, ok bool) {
		if !ok {
			if col.Required {
				errs = append(errs, ValidationError{Field: col.Header, Message: "missing required column"})
			}
			return
		}

		value := strings.TrimSpace(stringifyValue(raw))
		if value == "" {
			if col.Required {
				errs = append(errs, ValidationError{Field: col.Header, Message: "required field is empty"})
			}
			return
		}

		if err := ValidateCell(raw, col.Type); err != nil {
			errs = append(errs, ValidationError{Field: col.Header, Value: value, Message: err.Error()})
		}
	})
	return errs
}

// ValidateCell checks a non-empty value against a column type.
func ValidateCell(v any, t ColumnType) error {
	s := strings.TrimSpace(stringifyValue(v))
	if s == "" {
		return nil
	}

	switch t {
	case TypeNumber:
		if _, ok := numericValue(v); !ok {
			return fmt.Errorf("invalid number format")
		}
	case TypeEmail:
		if !IsEmail(s) {
			return fmt.Errorf("invalid email address")
		}
	case TypePhone:
		if !IsPhone(s) {
			return fmt.Errorf("invalid phone number")
		}
	case TypeBoolean:
		if _, ok := ParseBoolToken(v); !ok {
			return fmt.Errorf("invalid boolean value (use %s)", strings.Join(BoolTokens, ", "))
		}
	}
	return nil
}

// HeaderReport describes how an uploaded header row lines up with a schema.
type HeaderReport struct {
	Missing []string `json:"missing,omitempty"` // required columns not found
	Unknown []string `json:"unknown,omitempty"` // file headers matching no column
}

// CheckHeaders compares a file's headers against columns. Category columns
// count as present when the file has them expanded or collapsed.
func CheckHeaders(headers []string, columns ColumnSchema) HeaderReport {
	idx := MakeHeaderIndex(headers)
	used := make(map[int]bool, len(headers))
	var report HeaderReport

	for _, col := range columns {
		pos, ok := idx.Lookup(columnCandidates(col)...)
		if !ok && col.IsCategory() {
			pos, ok = idx.Lookup(CategoriesField)
		}
		if ok {
			used[pos] = true
			continue
		}
		if col.Required {
			report.Missing = append(report.Missing, col.Header)
		}
	}
	if pos, ok := idx.Lookup(CategoriesField); ok && columns.HasCategories() {
		used[pos] = true
	}

	for i, h := range headers {
		if used[i] || strings.TrimSpace(h) == "" {
			continue
		}
		if pos, ok := idx[NormalizeHeaderName(CleanCell(h))]; ok && used[pos] {
			continue
		}
		report.Unknown = append(report.Unknown, h)
	}
	return report
}

// Err returns a "missing required column" error when columns are missing.
func (r HeaderReport) Err() error {
	if len(r.Missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required column(s): %s", strings.Join(r.Missing, ", "))
}
