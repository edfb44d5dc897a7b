package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeaderName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Company Name", "company name"},
		{"  Company   Name  ", "company name"},
		{"Info (Nederlands)", "info nederlands"},
		{"info_nederlands", "info nederlands"},
		{"E-mail", "e mail"},
		{"Revenue/Year", "revenue year"},
		{"Don't", "dont"},
		{"Café", "café"},
		{"Größe", "größe"},
		{"Q1 2024", "q1 2024"},
		{"(EN)", "en"},
		{"***", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeHeaderName(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeHeaderName(got), "normalization is idempotent")
		})
	}
}

func TestResolveHeaderValue(t *testing.T) {
	row := NewRow(
		"Company Name", "Acme",
		"Info (Nederlands)", "Wij maken dingen",
		"Info About Us", "About",
		"Notes", "",
	)

	tests := []struct {
		name       string
		candidates []string
		want       any
		found      bool
	}{
		{"exact", []string{"Company Name"}, "Acme", true},
		{"case and separators", []string{"company_name"}, "Acme", true},
		{"parenthetical tag", []string{"info nederlands"}, "Wij maken dingen", true},
		{"first candidate missing", []string{"Name", "Company Name"}, "Acme", true},
		{"words must match exactly", []string{"Info"}, nil, false},
		{"empty value is found", []string{"notes"}, "", true},
		{"no candidates", nil, nil, false},
		{"blank candidate", []string{"  "}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ResolveHeaderValue(row, tt.candidates)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHeaderKey_RowOrderWins(t *testing.T) {
	row := NewRow("company", "second", "Company Name", "first")
	key, ok := ResolveHeaderKey(row, []string{"Company Name", "Company"})
	assert.True(t, ok)
	assert.Equal(t, "company", key, "keys are tried in row order")
}

func TestResolveHeaderValue_EmptyRow(t *testing.T) {
	_, ok := ResolveHeaderValue(Row{}, []string{"Name"})
	assert.False(t, ok)
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Name", " name ", `"Email"`, "Phone Number"})

	pos, ok := idx.Lookup("NAME")
	assert.True(t, ok)
	assert.Equal(t, 0, pos, "first occurrence wins")

	pos, ok = idx.Lookup("email")
	assert.True(t, ok)
	assert.Equal(t, 2, pos, "quotes are cleaned")

	pos, ok = idx.Lookup("Telephone", "phone_number")
	assert.True(t, ok)
	assert.Equal(t, 3, pos)

	pos, ok = idx.Lookup("Website")
	assert.False(t, ok)
	assert.Equal(t, -1, pos)
}

func TestNormalizeMatchValue(t *testing.T) {
	assert.Equal(t, "acme", normalizeMatchValue("  ACME "))
	assert.Equal(t, "2024", normalizeMatchValue(float64(2024)))
	assert.Equal(t, "", normalizeMatchValue(nil))
}

func TestHeaderResolver_OnePlanPerLayout(t *testing.T) {
	r := newHeaderResolver([]string{"name", "Company Name"}, []string{"Email"})

	for i := 0; i < 100; i++ {
		row := NewRow("Company Name", i, "E-mail", "x", "email", "a@b.io")
		keys := r.keys(row)
		assert.Equal(t, []string{"Company Name", "email"}, keys)
	}
	assert.Len(t, r.plans, 1)

	other := NewRow("EMAIL", "c@d.io", "Name", "Globex", "company_name", "ignored")
	assert.Equal(t, []string{"Name", "EMAIL"}, r.keys(other), "earliest matching header wins")
	v, ok := r.value(other, 0)
	assert.True(t, ok)
	assert.Equal(t, "Globex", v)
	assert.Len(t, r.plans, 2)

	_, ok = r.value(NewRow("Phone", "1"), 1)
	assert.False(t, ok)
}

func TestHeaderResolver_BoundedCache(t *testing.T) {
	r := newHeaderResolver([]string{"name"})
	for i := 0; i < maxHeaderPlans*2; i++ {
		row := NewRow("name", "x", fmt.Sprintf("extra %d", i), i)
		assert.Equal(t, []string{"name"}, r.keys(row))
	}
	assert.LessOrEqual(t, len(r.plans), maxHeaderPlans)
}

func TestSchemaValidator_SharesLayoutPlan(t *testing.T) {
	v := NewSchemaValidator(ColumnSchema{
		{Key: "name", Header: "Company Name", Required: true},
		{Key: "employees", Header: "Employees", Type: TypeNumber},
	})
	for i := 0; i < 50; i++ {
		assert.Empty(t, v.Validate(NewRow("company_name", "Acme", "Employees", i)))
	}
	assert.Len(t, v.columns.headers.plans, 1)
	assert.NotEmpty(t, v.Validate(NewRow("company_name", "", "Employees", "many")))
}
