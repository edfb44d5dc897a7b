package core

import "strings"

// LookupMap maps one record field to another, e.g. category name to slug.
type LookupMap struct {
	caseSensitive bool
	entries       map[string]any
}

// BuildLookupMap indexes records by keyField, storing valueField.
// Keys are trimmed; unless caseSensitive they are also lowercased. Records
// with an empty key are skipped and the first record for a key wins.
func BuildLookupMap(records []Row, keyField, valueField string, caseSensitive bool) LookupMap {
	m := LookupMap{
		caseSensitive: caseSensitive,
		entries:       make(map[string]any, len(records)),
	}
	for _, rec := range records {
		k := m.normalize(rec.String(keyField))
		if k == "" {
			continue
		}
		if _, exists := m.entries[k]; exists {
			continue
		}
		v, _ := rec.Get(valueField)
		m.entries[k] = v
	}
	return m
}

func (m LookupMap) normalize(key string) string {
	key = strings.TrimSpace(key)
	if !m.caseSensitive {
		key = strings.ToLower(key)
	}
	return key
}

// Get returns the value stored for key.
func (m LookupMap) Get(key string) (any, bool) {
	v, ok := m.entries[m.normalize(key)]
	return v, ok
}

// Has reports whether key is present.
func (m LookupMap) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m LookupMap) Len() int { return len(m.entries) }
