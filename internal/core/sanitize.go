package core

import "strings"

// InternalKeyPrefix marks transform bookkeeping fields (e.g. _translations,
// _categorySlugs) that must never reach persistence.
const InternalKeyPrefix = "_"

// SanitizePayload removes top-level keys starting with "_" from a record or
// from every record of a slice. Nested values under other keys are left
// untouched and non-object inputs are returned unchanged. The input is not
// modified.
func SanitizePayload(v any) any {
	switch t := v.(type) {
	case Row:
		return SanitizeRow(t)
	case *Row:
		if t == nil {
			return t
		}
		r := SanitizeRow(*t)
		return &r
	case []Row:
		return SanitizeRows(t)
	case map[string]any:
		return sanitizeMap(t)
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, m := range t {
			out[i] = sanitizeMap(m)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = SanitizePayload(e)
		}
		return out
	}
	return v
}

// SanitizeRow returns a copy of row without internal keys.
func SanitizeRow(row Row) Row {
	var out Row
	for _, k := range row.keys {
		if strings.HasPrefix(k, InternalKeyPrefix) {
			continue
		}
		out.Set(k, row.values[k])
	}
	return out
}

// SanitizeRows applies SanitizeRow to every element.
func SanitizeRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = SanitizeRow(r)
	}
	return out
}

func sanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, InternalKeyPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}
