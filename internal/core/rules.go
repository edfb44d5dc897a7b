package core

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule is a business rule evaluated against each imported row.
//
// Expression must evaluate to true for valid rows. Column values are
// available by column key (numbers as float64, booleans as bool, empty cells
// as nil); keys that are not identifiers are reachable through row["key"].
type Rule struct {
	Field      string `json:"field"`
	Expression string `json:"expression"`
	Message    string `json:"message,omitempty"`
}

type compiledRule struct {
	Rule
	program *vm.Program
}

// RuleValidator evaluates compiled rules.
type RuleValidator struct {
	columns *rowColumns
	rules   []compiledRule
}

// NewRuleValidator compiles rules once. A rule that does not compile is a
// configuration error.
func NewRuleValidator(columns ColumnSchema, rules []Rule) (*RuleValidator, error) {
	v := &RuleValidator{columns: newRowColumns(columns)}
	for _, r := range rules {
		program, err := expr.Compile(r.Expression, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Expression, err)
		}
		v.rules = append(v.rules, compiledRule{Rule: r, program: program})
	}
	return v, nil
}

// Validate implements Validator.
func (v *RuleValidator) Validate(row Row) []ValidationError {
	if len(v.rules) == 0 {
		return nil
	}

	env := v.env(row)
	var errs []ValidationError
	for _, r := range v.rules {
		out, err := expr.Run(r.program, env)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   r.Field,
				Message: fmt.Sprintf("rule failed: %s: %v", r.Expression, err),
			})
			continue
		}
		if ok, isBool := out.(bool); isBool && ok {
			continue
		}
		msg := r.Message
		if msg == "" {
			msg = fmt.Sprintf("rule failed: %s", r.Expression)
		}
		value := ""
		if r.Field != "" {
			if raw, found := env[r.Field]; found {
				value = stringifyValue(raw)
			}
		}
		errs = append(errs, ValidationError{Field: r.Field, Value: value, Message: msg})
	}
	return errs
}

// env exposes the row to expressions by column key with typed values.
func (v *RuleValidator) env(row Row) map[string]any {
	env := make(map[string]any, len(v.columns.columns)+1)
	byKey := make(map[string]any, len(v.columns.columns))

	v.columns.each(row, func(col ColumnDefinition, raw any, ok bool) {
		if !ok {
			return
		}
		val := typedValue(raw, col.Type)
		byKey[col.Key] = val
		env[col.Key] = val
	})
	env["row"] = byKey
	return env
}

// typedValue converts a cell to the Go type matching its column type.
// Empty cells become nil; unparseable values stay as strings.
func typedValue(v any, t ColumnType) any {
	s := strings.TrimSpace(stringifyValue(v))
	if s == "" {
		return nil
	}
	switch t {
	case TypeNumber:
		if f, ok := numericValue(v); ok {
			return f
		}
	case TypeBoolean:
		if b, ok := ParseBoolToken(v); ok {
			return b
		}
	}
	return s
}

// CategoryValidator checks that every slug in the Categories field exists.
type CategoryValidator struct {
	known   LookupMap
	headers *headerResolver
}

// NewCategoryValidator creates a validator against known category slugs,
// typically BuildLookupMap(categories, "slug", "name", false).
func NewCategoryValidator(known LookupMap) *CategoryValidator {
	return &CategoryValidator{known: known, headers: newHeaderResolver([]string{CategoriesField})}
}

// Validate implements Validator.
func (v *CategoryValidator) Validate(row Row) []ValidationError {
	raw, ok := v.headers.value(row, 0)
	if !ok {
		return nil
	}
	var errs []ValidationError
	for _, slug := range SplitCategories(stringifyValue(raw)) {
		if !v.known.Has(slug) {
			errs = append(errs, ValidationError{
				Field:   CategoriesField,
				Value:   slug,
				Message: fmt.Sprintf("unknown category %q", slug),
			})
		}
	}
	return errs
}

// SplitCategories splits a collapsed Categories value into trimmed slugs.
func SplitCategories(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
