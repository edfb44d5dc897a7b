package datasets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

// CategoriesKey is the dataset holding {slug, name} category records.
const CategoriesKey = "categories"

func registerCategories() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:         CategoriesKey,
			Group:       "Directory",
			Label:       "Categories",
			Description: "Company categories referenced by slug",
		},
		Columns: core.ColumnSchema{
			{Key: "slug", Header: "Slug", Required: true},
			{Key: "name", Header: "Name", Required: true, Aliases: []string{"Category", "Category Name"}},
		},
		Match: core.MatchConfig{
			Fields: []core.MatchField{{Key: "slug"}},
			Mode:   core.MatchStrict,
		},
		Rules: []core.Rule{
			{Field: "slug", Expression: `slug == nil || slug matches "^[a-z0-9-]+$"`, Message: "slug must use lowercase letters, digits and dashes"},
		},
		Transform: func(payload core.Row) core.Row {
			payload.Set("slug", Slugify(payload.String("slug")))
			return payload
		},
	})
}

// Slugify lowercases s and replaces runs of non-alphanumerics with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// ExpandCategories replaces the Categories placeholder column with one
// boolean "category:<slug>" column per category and sets each row's
// membership cells. With no categories the placeholder is kept. Records are
// not modified.
func ExpandCategories(records []core.Row, columns core.ColumnSchema, categories []core.Row) ([]core.Row, core.ColumnSchema) {
	pos := -1
	for i, c := range columns {
		if c.Key == core.CategoriesField {
			pos = i
			break
		}
	}
	if pos < 0 {
		return records, columns
	}

	taken := map[string]bool{core.NormalizeHeaderName(core.CategoriesField): true}
	for i, c := range columns {
		if i == pos {
			continue
		}
		for _, h := range append([]string{c.Header, c.Key}, c.Aliases...) {
			taken[core.NormalizeHeaderName(h)] = true
		}
	}
	cats := categoryColumns(categories, taken)
	if len(cats) == 0 {
		return records, columns
	}

	expanded := make(core.ColumnSchema, 0, len(columns)-1+len(cats))
	expanded = append(expanded, columns[:pos]...)
	expanded = append(expanded, cats...)
	expanded = append(expanded, columns[pos+1:]...)

	rows := make([]core.Row, len(records))
	for i, rec := range records {
		member := make(map[string]bool)
		for _, slug := range core.SplitCategories(rec.String(core.CategoriesField)) {
			member[strings.ToLower(slug)] = true
		}
		row := rec.Clone()
		row.Delete(core.CategoriesField)
		for _, c := range cats {
			row.Set(c.Key, member[c.CategorySlug()])
		}
		rows[i] = row
	}
	return rows, expanded
}

// categoryColumns builds one column per distinct category slug, ordered by
// display name. A name whose normalized form is already in taken, or is used
// by an earlier category, gets its slug appended so every header reads back
// to exactly one column. taken holds the headers and aliases of the other
// columns.
func categoryColumns(categories []core.Row, taken map[string]bool) []core.ColumnDefinition {
	type cat struct{ slug, name string }
	seen := make(map[string]bool)
	var list []cat
	for _, rec := range categories {
		slug := strings.ToLower(strings.TrimSpace(rec.String("slug")))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		name := strings.TrimSpace(rec.String("name"))
		if name == "" {
			name = slug
		}
		list = append(list, cat{slug, name})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].name) < strings.ToLower(list[j].name)
	})

	out := make([]core.ColumnDefinition, len(list))
	for i, c := range list {
		header := c.name
		if taken[core.NormalizeHeaderName(header)] {
			header = fmt.Sprintf("%s (%s)", c.name, c.slug)
		}
		for n := 2; taken[core.NormalizeHeaderName(header)]; n++ {
			header = fmt.Sprintf("%s (%s %d)", c.name, c.slug, n)
		}
		taken[core.NormalizeHeaderName(header)] = true
		out[i] = core.CategoryColumn(c.slug, header)
	}
	return out
}
