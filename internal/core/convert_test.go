package core

import (
	"encoding/json"
	"testing"
)

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue string // String representation of expected numeric value
	}{
		// Valid: Basic integers
		{
			name:      "positive integer",
			input:     "123",
			wantValid: true,
			wantValue: "123",
		},
		{
			name:      "zero",
			input:     "0",
			wantValid: true,
			wantValue: "0",
		},
		{
			name:      "negative integer",
			input:     "-456",
			wantValid: true,
			wantValue: "-456",
		},

		// Valid: Decimals
		{
			name:      "decimal number",
			input:     "123.45",
			wantValid: true,
			wantValue: "123.45",
		},
		{
			name:      "leading decimal point",
			input:     ".99",
			wantValid: true,
			wantValue: "0.99",
		},
		{
			name:      "trailing decimal point",
			input:     "99.",
			wantValid: true,
			wantValue: "99",
		},

		// Valid: Currency symbols
		{
			name:      "dollar sign",
			input:     "$1,234.56",
			wantValid: true,
			wantValue: "1234.56",
		},
		{
			name:      "euro sign",
			input:     "\u20ac1234.56",
			wantValid: true,
			wantValue: "1234.56",
		},
		{
			name:      "pound sign",
			input:     "\u00a31234.56",
			wantValid: true,
			wantValue: "1234.56",
		},

		// Valid: Thousands separators
		{
			name:      "thousands separator",
			input:     "1,234,567.89",
			wantValid: true,
			wantValue: "1234567.89",
		},
		{
			name:      "millions with separators",
			input:     "1,000,000",
			wantValid: true,
			wantValue: "1000000",
		},

		// Valid: Accounting format (parentheses for negative)
		{
			name:      "accounting negative parentheses",
			input:     "(123.45)",
			wantValid: true,
			wantValue: "-123.45",
		},
		{
			name:      "accounting negative with currency",
			input:     "($1,234.56)",
			wantValid: true,
			wantValue: "-1234.56",
		},
		{
			name:      "accounting negative with spaces",
			input:     "( 999.99 )",
			wantValid: true,
			wantValue: "-999.99",
		},

		// Note: Scientific notation is NOT supported by pgtype.Numeric.Scan()
		// These test cases document current behavior (invalid)
		{
			name:      "scientific notation positive exponent not supported",
			input:     "1.5e10",
			wantValid: false,
		},
		{
			name:      "scientific notation negative exponent not supported",
			input:     "1.5e-3",
			wantValid: false,
		},
		{
			name:      "scientific notation uppercase E not supported",
			input:     "1.5E10",
			wantValid: false,
		},
		{
			name:      "scientific notation with plus not supported",
			input:     "1.5e+10",
			wantValid: false,
		},

		// Valid: Whitespace handling
		{
			name:      "leading whitespace",
			input:     "  123",
			wantValid: true,
			wantValue: "123",
		},
		{
			name:      "trailing whitespace",
			input:     "123  ",
			wantValid: true,
			wantValue: "123",
		},
		{
			name:      "surrounded by whitespace",
			input:     "  123.45  ",
			wantValid: true,
			wantValue: "123.45",
		},

		// Valid: Explicit positive sign
		{
			name:      "explicit positive sign",
			input:     "+123",
			wantValid: true,
			wantValue: "123",
		},

		// Invalid: Empty and whitespace
		{
			name:      "empty string",
			input:     "",
			wantValid: false,
		},
		{
			name:      "only whitespace",
			input:     "   ",
			wantValid: false,
		},

		// Invalid: Non-numeric content
		{
			name:      "alphabetic string",
			input:     "abc",
			wantValid: false,
		},
		{
			name:      "mixed alphanumeric",
			input:     "12abc34",
			wantValid: false,
		},
		{
			name:      "only currency symbol",
			input:     "$",
			wantValid: false,
		},
		{
			name:      "only currency and comma",
			input:     "$,",
			wantValid: false,
		},

		// Invalid: Malformed numbers
		{
			name:      "multiple decimal points",
			input:     "12.34.56",
			wantValid: false,
		},
		{
			name:      "double negative",
			input:     "--123",
			wantValid: false,
		},
		{
			name:      "negative after number",
			input:     "123-",
			wantValid: false,
		},

		// Invalid: Special values
		{
			name:      "NaN",
			input:     "NaN",
			wantValid: false,
		},
		{
			name:      "Infinity",
			input:     "Infinity",
			wantValid: false,
		},
		{
			name:      "negative infinity",
			input:     "-Infinity",
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToPgNumeric(tt.input)

			if result.Valid != tt.wantValid {
				t.Errorf("ToPgNumeric(%q).Valid = %v, want %v",
					tt.input, result.Valid, tt.wantValid)
				return
			}

			if tt.wantValid {
				// Verify the numeric is valid and can be converted to float64
				f, err := result.Float64Value()
				if err != nil {
					t.Errorf("ToPgNumeric(%q) Float64Value error: %v", tt.input, err)
				}
				if !f.Valid {
					t.Errorf("ToPgNumeric(%q) Float64Value returned invalid", tt.input)
				}
			}
		})
	}
}

func TestParseBoolToken(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantValue bool
		wantOK    bool
	}{
		{"plus", "+", true, true},
		{"minus", "-", false, true},
		{"x lower", "x", true, true},
		{"x upper", "X", true, true},
		{"check mark", "✓", true, true},
		{"true mixed case", "True", true, true},
		{"false upper", "FALSE", false, true},
		{"yes", "yes", true, true},
		{"no", "No", false, true},
		{"one string", "1", true, true},
		{"zero string", "0", false, true},
		{"padded", "  +  ", true, true},
		{"native true", true, true, true},
		{"native false", false, false, true},
		{"int one", 1, true, true},
		{"float zero", 0.0, false, true},
		{"json number", json.Number("1"), true, true},
		{"int two", 2, false, false},
		{"empty", "", false, false},
		{"nil", nil, false, false},
		{"unknown word", "maybe", false, false},
		{"y is not a token", "y", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBoolToken(tt.input)
			if ok != tt.wantOK || got != tt.wantValue {
				t.Errorf("ParseBoolToken(%#v) = (%v, %v), want (%v, %v)",
					tt.input, got, ok, tt.wantValue, tt.wantOK)
			}
		})
	}
}

func TestBoolTokens_AllParse(t *testing.T) {
	for _, tok := range BoolTokens {
		if _, ok := ParseBoolToken(tok); !ok {
			t.Errorf("ParseBoolToken(%q) not accepted, but it is in BoolTokens", tok)
		}
	}
	if FormatBoolToken(true) != "+" || FormatBoolToken(false) != "-" {
		t.Errorf("FormatBoolToken = %q/%q, want +/-", FormatBoolToken(true), FormatBoolToken(false))
	}
}

func TestStringifyValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"whole float", 42.0, "42"},
		{"fraction", 1.25, "1.25"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"json number", json.Number("12.50"), "12.50"},
		{"string slice", []string{"a", "b"}, "a,b"},
		{"any slice", []any{"a", 2.0}, "a,2"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringifyValue(tt.input); got != tt.want {
				t.Errorf("stringifyValue(%#v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		input  any
		want   float64
		wantOK bool
	}{
		{3, 3, true},
		{2.5, 2.5, true},
		{json.Number("10"), 10, true},
		{"$1,200.50", 1200.5, true},
		{"(5)", -5, true},
		{"abc", 0, false},
		{"", 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := numericValue(tt.input)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("numericValue(%#v) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsPhone(t *testing.T) {
	valid := []string{"+31 20 123 4567", "020-1234567", "(020) 123.45.67", "123456"}
	invalid := []string{"", "12345", "call me", "+31 20 abc", "++31201234567"}

	for _, s := range valid {
		if !IsPhone(s) {
			t.Errorf("IsPhone(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsPhone(s) {
			t.Errorf("IsPhone(%q) = true, want false", s)
		}
	}
}

func TestIsEmail(t *testing.T) {
	valid := []string{"info@example.com", " sales@example.nl ", "first.last+tag@sub.example.org"}
	invalid := []string{"", "example.com", "Info <info@example.com>", "a@b@c", "two@example.com, three@example.com"}

	for _, s := range valid {
		if !IsEmail(s) {
			t.Errorf("IsEmail(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsEmail(s) {
			t.Errorf("IsEmail(%q) = true, want false", s)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple string unchanged", "hello", "hello"},
		{"empty string", "", ""},
		{"surrounded by whitespace", "  hello  ", "hello"},
		{"Excel formula with quotes", `="hello"`, "hello"},
		{"Excel formula number as text", `="12345"`, "12345"},
		{"real formula kept", "=SUM(A1)", "=SUM(A1)"},
		{"double quotes removed", `"hello"`, "hello"},
		{"single quotes kept", "'hello'", "'hello'"},
		{"excel formula with whitespace", `  ="test"  `, "test"},
		{"only quotes", `""`, ""},
		{"equals with quoted number", `="0"`, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsEmptyRecord(t *testing.T) {
	if !isEmptyRecord(nil) || !isEmptyRecord([]string{"", "  ", "\t"}) {
		t.Error("isEmptyRecord should be true for blank records")
	}
	if isEmptyRecord([]string{"", "x"}) {
		t.Error("isEmptyRecord should be false when any cell has content")
	}
}
