package core

import (
	"fmt"
	"strings"
)

// ColumnType is the declared value type of a column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypePhone   ColumnType = "phone"
	TypeEmail   ColumnType = "email"
	TypeBoolean ColumnType = "boolean"
)

// Valid reports whether t is a known column type. The empty type is treated
// as TypeString.
func (t ColumnType) Valid() bool {
	switch t {
	case "", TypeString, TypeNumber, TypePhone, TypeEmail, TypeBoolean:
		return true
	}
	return false
}

// CategoryKeyPrefix marks a per-category boolean column.
const CategoryKeyPrefix = "category:"

// CategoriesField is the collapsed field holding comma-joined category slugs.
const CategoriesField = "Categories"

// ColumnDefinition describes one exported/imported column.
type ColumnDefinition struct {
	Key      string     `json:"key"`
	Header   string     `json:"header"`
	Type     ColumnType `json:"type,omitempty"`
	Required bool       `json:"required,omitempty"`
	WrapText bool       `json:"wrapText,omitempty"`
	// Aliases are other header spellings accepted on import.
	Aliases []string `json:"aliases,omitempty"`
}

// IsCategory reports whether the column is a per-category boolean column.
// Detection is by key prefix only; the header is a display label.
func (c ColumnDefinition) IsCategory() bool {
	return strings.HasPrefix(c.Key, CategoryKeyPrefix)
}

// CategorySlug returns the slug of a category column, or "" for other columns.
func (c ColumnDefinition) CategorySlug() string {
	if !c.IsCategory() {
		return ""
	}
	return strings.TrimPrefix(c.Key, CategoryKeyPrefix)
}

// IsBooleanLike reports whether cells in this column hold boolean tokens.
func (c ColumnDefinition) IsBooleanLike() bool {
	return c.Type == TypeBoolean || c.IsCategory()
}

// CategoryColumn builds the column definition for one category.
func CategoryColumn(slug, displayName string) ColumnDefinition {
	return ColumnDefinition{
		Key:    CategoryKeyPrefix + slug,
		Header: displayName,
		Type:   TypeBoolean,
	}
}

// ColumnSchema is an ordered list of column definitions. Order defines the
// sheet column order.
type ColumnSchema []ColumnDefinition

// Validate checks the schema invariants and returns every problem found.
func (s ColumnSchema) Validate() error {
	var errs []string
	seen := make(map[string]bool, len(s))
	headers := make(map[string]string, len(s))

	for i, col := range s {
		switch {
		case col.Key == "":
			errs = append(errs, fmt.Sprintf("column %d: key is empty", i+1))
		case seen[col.Key]:
			errs = append(errs, fmt.Sprintf("column %d: duplicate key %q", i+1, col.Key))
		}
		seen[col.Key] = true

		if strings.TrimSpace(col.Header) == "" {
			errs = append(errs, fmt.Sprintf("column %q: header is empty", col.Key))
		} else if norm := NormalizeHeaderName(col.Header); norm != "" {
			if other, dup := headers[norm]; dup {
				errs = append(errs, fmt.Sprintf("column %q: header %q duplicates column %q", col.Key, col.Header, other))
			} else {
				headers[norm] = col.Key
			}
		}
		if !col.Type.Valid() {
			errs = append(errs, fmt.Sprintf("column %q: unknown type %q", col.Key, col.Type))
		}
		if col.IsCategory() {
			if col.CategorySlug() == "" {
				errs = append(errs, fmt.Sprintf("column %q: category slug is empty", col.Key))
			}
			if NormalizeHeaderName(col.Header) == NormalizeHeaderName(CategoriesField) {
				errs = append(errs, fmt.Sprintf("column %q: category header must not be %q", col.Key, CategoriesField))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid column schema:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Keys returns the column keys in order.
func (s ColumnSchema) Keys() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Key
	}
	return out
}

// Headers returns the column headers in order.
func (s ColumnSchema) Headers() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Header
	}
	return out
}

// Column returns the definition for key.
func (s ColumnSchema) Column(key string) (ColumnDefinition, bool) {
	for _, c := range s {
		if c.Key == key {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

// CategoryColumns returns the category columns in schema order.
func (s ColumnSchema) CategoryColumns() []ColumnDefinition {
	var out []ColumnDefinition
	for _, c := range s {
		if c.IsCategory() {
			out = append(out, c)
		}
	}
	return out
}

// HasCategories reports whether the schema contains per-category columns.
func (s ColumnSchema) HasCategories() bool {
	for _, c := range s {
		if c.IsCategory() {
			return true
		}
	}
	return false
}

// Collapsed returns the schema as seen after import: category columns are
// replaced by a single Categories column at the position of the first one.
func (s ColumnSchema) Collapsed() ColumnSchema {
	if !s.HasCategories() {
		return s
	}
	out := make(ColumnSchema, 0, len(s))
	placed := false
	for _, c := range s {
		if !c.IsCategory() {
			out = append(out, c)
			continue
		}
		if !placed {
			out = append(out, ColumnDefinition{Key: CategoriesField, Header: CategoriesField, Type: TypeString})
			placed = true
		}
	}
	return out
}
