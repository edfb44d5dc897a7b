package core

// convert.go provides value conversions shared by export, import and validation.
//
// These functions handle the messy reality of user-edited spreadsheets:
//   - Boolean cells typed as +, -, X, ✓, yes, no, 1, 0, TRUE, FALSE
//   - Numbers with currency symbols, thousand separators and accounting negatives
//   - Excel formula prefixes (="value") and stray quotes in CSV exports

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Boolean tokens written by the exporter.
const (
	TokenTrue  = "+"
	TokenFalse = "-"
)

// BoolTokens is the list a spreadsheet application accepts in boolean and
// category cells. Matching is case-insensitive.
var BoolTokens = []string{"TRUE", "FALSE", "+", "-", "X", "✓", "1", "0", "YES", "NO"}

var (
	trueTokens  = map[string]bool{"TRUE": true, "+": true, "X": true, "✓": true, "1": true, "YES": true}
	falseTokens = map[string]bool{"FALSE": true, "-": true, "0": true, "NO": true}
)

// ParseBoolToken interprets a cell as a boolean. ok is false for empty cells
// and values outside the accepted token set.
func ParseBoolToken(v any) (value bool, ok bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, true
	case int:
		return boolFromNumber(float64(t))
	case int64:
		return boolFromNumber(float64(t))
	case float64:
		return boolFromNumber(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, false
		}
		return boolFromNumber(f)
	}

	s := strings.ToUpper(strings.TrimSpace(stringifyValue(v)))
	switch {
	case s == "":
		return false, false
	case trueTokens[s]:
		return true, true
	case falseTokens[s]:
		return false, true
	}
	return false, false
}

func boolFromNumber(f float64) (bool, bool) {
	switch f {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return false, false
}

// FormatBoolToken returns the token written for b.
func FormatBoolToken(b bool) string {
	if b {
		return TokenTrue
	}
	return TokenFalse
}

// stringifyValue renders a value the way it appears in an exported cell.
// nil becomes "", whole floats lose their fraction, slices are comma-joined.
func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringifyValue(e)
		}
		return strings.Join(parts, ",")
	case map[string]any, Row:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// numericValue returns v as a float64 when it is numeric or a numeric string.
func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		n := ToPgNumeric(t)
		if !n.Valid {
			return 0, false
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, true
	}
	return 0, false
}

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// phoneRegex accepts digits with common separators and an optional leading +.
var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()./-]{6,}$`)

// IsPhone reports whether s looks like a phone number with at least six digits.
func IsPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phoneRegex.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 6
}

// IsEmail reports whether s is a single bare e-mail address.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	return strings.Trim(cleanDecodedCell(s), `"`)
}

// cleanDecodedCell is CleanCell for values encoding/csv has already
// unquoted. Quote characters still present are part of the value.
func cleanDecodedCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}

// isEmptyRecord reports whether every cell of a raw record is blank.
func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
