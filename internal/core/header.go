package core

// header.go resolves header names that drift under manual spreadsheet editing.
//
// Users translate labels, add trailing spaces or parenthetical language tags
// ("Info (Nederlands)"), and spreadsheet tools rewrite separators ("info_de").
// Matching is forgiving to those cosmetic differences but exact on the words
// themselves: "Info" never matches "Info About Us".

import (
	"strings"
	"sync"
	"unicode"
)

// NormalizeHeaderName returns the canonical form of a header:
// lowercased, punctuation stripped, separators (whitespace, '_', '-', '/')
// collapsed to single spaces, surrounding whitespace trimmed.
// Letters and digits of any script are preserved. The function is idempotent.
func NormalizeHeaderName(header string) string {
	var b strings.Builder
	b.Grow(len(header))

	pendingSpace := false
	for _, r := range strings.ToLower(header) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case isHeaderSeparator(r):
			pendingSpace = true
		default:
			// punctuation and symbols are dropped without splitting words
		}
	}
	return b.String()
}

func isHeaderSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '_' || r == '-' || r == '/'
}

// ResolveHeaderValue returns the value of the first row key whose normalized
// form equals the normalized form of any candidate. Keys are tried in the
// row's natural order. The boolean is false when nothing matches, which
// callers must treat differently from an empty string value.
func ResolveHeaderValue(row Row, candidates []string) (any, bool) {
	key, ok := ResolveHeaderKey(row, candidates)
	if !ok {
		return nil, false
	}
	return row.Get(key)
}

// ResolveHeaderKey is like ResolveHeaderValue but returns the matching key as
// it appears in the row.
func ResolveHeaderKey(row Row, candidates []string) (string, bool) {
	if len(candidates) == 0 || row.Len() == 0 {
		return "", false
	}

	wanted := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		n := NormalizeHeaderName(c)
		if n == "" {
			continue
		}
		wanted[n] = struct{}{}
	}

	for _, key := range row.keys {
		if _, ok := wanted[NormalizeHeaderName(key)]; ok {
			return key, true
		}
	}
	return "", false
}

// headerResolver resolves a fixed list of columns, each with its candidate
// spellings, against rows. The outcome depends only on a row's keys, so it is
// computed once per key layout and reused by every row sharing that layout,
// which is every row of a parsed sheet or CSV file.
type headerResolver struct {
	wanted [][]string // normalized candidates per column

	mu    sync.Mutex
	plans map[string][]string
}

// maxHeaderPlans bounds the layout cache for inputs such as JSON arrays
// whose objects all differ in shape.
const maxHeaderPlans = 64

func newHeaderResolver(candidates ...[]string) *headerResolver {
	r := &headerResolver{
		wanted: make([][]string, len(candidates)),
		plans:  make(map[string][]string),
	}
	for i, cs := range candidates {
		for _, c := range cs {
			if n := NormalizeHeaderName(c); n != "" {
				r.wanted[i] = append(r.wanted[i], n)
			}
		}
	}
	return r
}

// keys returns, per column, the row key it resolves to, or "" when the row
// has no matching header. The result is shared and must not be modified.
func (r *headerResolver) keys(row Row) []string {
	layout := strings.Join(row.keys, "\x00")

	r.mu.Lock()
	defer r.mu.Unlock()
	if plan, ok := r.plans[layout]; ok {
		return plan
	}

	pos := make(map[string]int, len(row.keys))
	for i, k := range row.keys {
		n := NormalizeHeaderName(k)
		if _, exists := pos[n]; !exists {
			pos[n] = i
		}
	}
	plan := make([]string, len(r.wanted))
	for i, ws := range r.wanted {
		best := -1
		for _, w := range ws {
			if p, ok := pos[w]; ok && (best < 0 || p < best) {
				best = p
			}
		}
		if best >= 0 {
			plan[i] = row.keys[best]
		}
	}

	if len(r.plans) >= maxHeaderPlans {
		clear(r.plans)
	}
	r.plans[layout] = plan
	return plan
}

// value returns the value of column i of row.
func (r *headerResolver) value(row Row, i int) (any, bool) {
	key := r.keys(row)[i]
	if key == "" {
		return nil, false
	}
	return row.Get(key)
}

// HeaderIndex maps normalized header names to their position in a header row.
// When two headers normalize to the same name the first position wins.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
func MakeHeaderIndex(headers []string) HeaderIndex {
	idx := make(HeaderIndex, len(headers))
	for i, h := range headers {
		key := NormalizeHeaderName(CleanCell(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// Lookup returns the position of the first candidate present in the index.
func (idx HeaderIndex) Lookup(candidates ...string) (int, bool) {
	for _, c := range candidates {
		if pos, ok := idx[NormalizeHeaderName(c)]; ok {
			return pos, true
		}
	}
	return -1, false
}

// normalizeMatchValue prepares a value for case-insensitive, trimmed comparison.
func normalizeMatchValue(v any) string {
	return strings.ToLower(strings.TrimSpace(stringifyValue(v)))
}
