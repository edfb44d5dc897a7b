package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRegistry(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
}

func TestRegister(t *testing.T) {
	resetRegistry(t)

	Register(DatasetDefinition{
		Info:    DatasetInfo{Key: "vendors", Group: "Directory", Label: "Vendors"},
		Columns: ColumnSchema{{Key: "name", Header: "Name"}, {Key: "city", Header: "City"}},
		Match:   MatchConfig{Fields: []MatchField{{Key: "name"}}},
	})

	def, ok := Get("vendors")
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "City"}, def.Info.Columns, "info columns default to headers")
	assert.Equal(t, MatchFirst, def.Match.Mode)
	assert.NotNil(t, def.rules)

	_, err := Lookup("vendors")
	assert.NoError(t, err)
}

func TestRegister_Panics(t *testing.T) {
	resetRegistry(t)
	valid := DatasetDefinition{
		Info:    DatasetInfo{Key: "vendors"},
		Columns: ColumnSchema{{Key: "name", Header: "Name"}},
	}
	Register(valid)

	assert.PanicsWithValue(t, "dataset already registered: vendors", func() { Register(valid) })

	assert.Panics(t, func() {
		Register(DatasetDefinition{Info: DatasetInfo{Key: "bad_schema"}, Columns: ColumnSchema{{Key: "", Header: "X"}}})
	})
	assert.Panics(t, func() {
		Register(DatasetDefinition{
			Info:    DatasetInfo{Key: "bad_rule"},
			Columns: ColumnSchema{{Key: "name", Header: "Name"}},
			Rules:   []Rule{{Expression: "name =="}},
		})
	})

	_, ok := Get("bad_schema")
	assert.False(t, ok)
}

func TestLookup_Unknown(t *testing.T) {
	resetRegistry(t)
	_, err := Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestAllAndGroups(t *testing.T) {
	resetRegistry(t)
	cols := ColumnSchema{{Key: "name", Header: "Name"}}
	Register(DatasetDefinition{Info: DatasetInfo{Key: "reports", Group: "Reports"}, Columns: cols})
	Register(DatasetDefinition{Info: DatasetInfo{Key: "vendors", Group: "Directory"}, Columns: cols})
	Register(DatasetDefinition{Info: DatasetInfo{Key: "categories", Group: "Directory"}, Columns: cols})

	var keys []string
	for _, def := range All() {
		keys = append(keys, def.Info.Key)
	}
	assert.Equal(t, []string{"categories", "vendors", "reports"}, keys)
	assert.Equal(t, []string{"Directory", "Reports"}, Groups())
}

func TestDatasetDefinition_ExportFileBase(t *testing.T) {
	def := DatasetDefinition{Info: DatasetInfo{Key: "company_reports"}}
	assert.Equal(t, "company-reports", def.ExportFileBase())
}

func TestDatasetDefinition_Payload(t *testing.T) {
	def := DatasetDefinition{
		Columns: ColumnSchema{
			{Key: "name", Header: "Company Name", Aliases: []string{"Company"}},
			{Key: "employees", Header: "Employees", Type: TypeNumber},
			{Key: "active", Header: "Active", Type: TypeBoolean},
			CategoryColumn("food", "Food"),
			{Key: "notes", Header: "Notes"},
		},
		Transform: func(p Row) Row {
			p.Set("_seen", true)
			p.Set("name", p.String("name")+" B.V.")
			return p
		},
	}

	got := def.Payload(NewRow("company", "Acme", "Employees", "1,200", "Active", "x", "Categories", "food", "Extra", "ignored"))

	assert.Equal(t, []string{"name", "employees", "active", CategoriesField}, got.Keys())
	assert.Equal(t, "Acme B.V.", got.String("name"))
	v, _ := got.Get("employees")
	assert.Equal(t, float64(1200), v)
	v, _ = got.Get("active")
	assert.Equal(t, true, v)
	assert.False(t, got.Has("_seen"), "bookkeeping fields are stripped")
	assert.False(t, got.Has("notes"), "absent columns are not written")
}
