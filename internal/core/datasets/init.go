// Package datasets registers the dataset definitions with the core registry.
// Import it for side effects:
//
//	import _ "github.com/JonMunkholm/sheetbridge/internal/core/datasets"
package datasets

func init() {
	registerCategories()
	registerCompanies()
	registerCompanyReports()
}
