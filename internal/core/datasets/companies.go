package datasets

import (
	"strings"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

// CompaniesKey is the companies dataset.
const CompaniesKey = "companies"

// CompanyColumns is the domain shape of a company. The Categories column is
// expanded per category on export.
var CompanyColumns = core.ColumnSchema{
	{Key: "name", Header: "Company Name", Required: true, Aliases: []string{"Name", "Company"}},
	{Key: "website", Header: "Website"},
	{Key: "email", Header: "Email", Type: core.TypeEmail, Aliases: []string{"E-mail"}},
	{Key: "phone", Header: "Phone", Type: core.TypePhone, Aliases: []string{"Telephone"}},
	{Key: core.CategoriesField, Header: core.CategoriesField},
	{Key: "info_en", Header: "Info (EN)", WrapText: true, Aliases: []string{"Info English"}},
	{Key: "info_nl", Header: "Info (Nederlands)", WrapText: true, Aliases: []string{"Info NL"}},
	{Key: "employees", Header: "Employees", Type: core.TypeNumber},
	{Key: "active", Header: "Active", Type: core.TypeBoolean},
}

func registerCompanies() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:         CompaniesKey,
			Group:       "Directory",
			Label:       "Companies",
			Description: "Company directory with category membership",
		},
		Columns: CompanyColumns,
		Match: core.MatchConfig{
			Fields: []core.MatchField{{Key: "name", Headers: []string{"Company Name", "Name", "Company"}}},
			Mode:   core.MatchFirst,
		},
		Rules: []core.Rule{
			{Field: "employees", Expression: `employees == nil || employees >= 0`, Message: "employees must not be negative"},
		},
		CategorySource: CategoriesKey,
		Prepare:        ExpandCategories,
		Transform:      normalizeCompany,
	})
}

// normalizeCompany lowercases and dedupes category slugs. The slug list rides
// along as _categorySlugs and is stripped before persistence.
func normalizeCompany(payload core.Row) core.Row {
	if !payload.Has(core.CategoriesField) {
		return payload
	}
	var slugs []string
	seen := make(map[string]bool)
	for _, s := range core.SplitCategories(payload.String(core.CategoriesField)) {
		s = strings.ToLower(s)
		if seen[s] {
			continue
		}
		seen[s] = true
		slugs = append(slugs, s)
	}
	payload.Set(core.CategoriesField, strings.Join(slugs, ","))
	payload.Set("_categorySlugs", slugs)
	return payload
}
