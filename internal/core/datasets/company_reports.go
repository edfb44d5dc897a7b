package datasets

import "github.com/JonMunkholm/sheetbridge/internal/core"

// CompanyReportsKey is the yearly company reports dataset.
const CompanyReportsKey = "company_reports"

func registerCompanyReports() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:         CompanyReportsKey,
			Group:       "Reports",
			Label:       "Company Reports",
			Description: "Yearly figures per company, matched on company and year",
		},
		Columns: core.ColumnSchema{
			{Key: "company", Header: "Company", Required: true, Aliases: []string{"Company Name"}},
			{Key: "year", Header: "Year", Type: core.TypeNumber, Required: true},
			{Key: "revenue", Header: "Revenue", Type: core.TypeNumber},
			{Key: "employees", Header: "Employees", Type: core.TypeNumber},
			{Key: "audited", Header: "Audited", Type: core.TypeBoolean},
			{Key: "notes", Header: "Notes", WrapText: true},
		},
		Match: core.MatchConfig{
			Fields: []core.MatchField{
				{Key: "company", Headers: []string{"Company", "Company Name"}},
				{Key: "year", Headers: []string{"Year"}},
			},
			Mode: core.MatchStrict,
		},
		Rules: []core.Rule{
			{Field: "year", Expression: `year == nil || (year >= 1900 && year <= 2100)`, Message: "year must be between 1900 and 2100"},
			{Field: "revenue", Expression: `revenue == nil || revenue >= 0`, Message: "revenue must not be negative"},
		},
	})
}
