package core

// match.go classifies parsed rows as CREATE, UPDATE or ERROR against the
// records that already exist.
//
// Match values are compared trimmed and lowercased. Existing records are
// indexed once per import; each row is then a map lookup.

import (
	"fmt"
	"strings"
)

// MatchAction is the outcome for one imported row.
type MatchAction string

const (
	ActionCreate MatchAction = "CREATE"
	ActionUpdate MatchAction = "UPDATE"
	ActionError  MatchAction = "ERROR"
)

// MatchMode controls what happens when several records match.
type MatchMode string

const (
	// MatchFirst picks the first matching record.
	MatchFirst MatchMode = "first"
	// MatchStrict requires zero or one match and reports duplicates as errors.
	MatchStrict MatchMode = "strict"
)

// MatchField names a record field and the header spellings that carry it on
// an uploaded row. The key itself is always accepted as a header.
type MatchField struct {
	Key     string   `json:"key"`
	Headers []string `json:"headers,omitempty"`
}

func (f MatchField) candidates() []string {
	out := make([]string, 0, len(f.Headers)+1)
	out = append(out, f.Headers...)
	return append(out, f.Key)
}

// MatchConfig configures record matching. A composite key (e.g. a foreign
// key id plus a year) uses several fields.
type MatchConfig struct {
	Fields []MatchField `json:"fields"`
	Mode   MatchMode    `json:"mode,omitempty"`
}

// MatchResult is the classification of one imported row. Line is the row's
// position in the parsed data with the header counted as line 1.
type MatchResult struct {
	Line          int               `json:"line"`
	Key           string            `json:"key,omitempty"`
	Row           Row               `json:"row"`
	Action        MatchAction       `json:"action"`
	MatchedRecord *Row              `json:"matchedRecord"`
	Errors        []ValidationError `json:"errors,omitempty"`
}

// MatchSummary counts results per action.
type MatchSummary struct {
	Total           int `json:"total"`
	Create          int `json:"create"`
	Update          int `json:"update"`
	Error           int `json:"error"`
	DuplicateInFile int `json:"duplicateInFile"`
}

// MatchReport is the result of MatchRecords.
type MatchReport struct {
	Summary MatchSummary  `json:"summary"`
	Results []MatchResult `json:"results"`
}

// MatchRecord returns the first existing record whose fields equal the row's
// resolved values, or nil. Rows whose match values are all empty never match.
func MatchRecord(row Row, existing []Row, fields []MatchField) *Row {
	key, ok := rowMatchKey(row, matchHeaders(fields))
	if !ok {
		return nil
	}
	for i := range existing {
		if k, ok := recordMatchKey(existing[i], fields); ok && k == key {
			rec := existing[i]
			return &rec
		}
	}
	return nil
}

// Matcher holds an index over existing records.
type Matcher struct {
	cfg      MatchConfig
	existing []Row
	index    map[string][]int
	headers  *headerResolver
}

// NewMatcher indexes existing records by cfg.Fields.
func NewMatcher(existing []Row, cfg MatchConfig) *Matcher {
	if cfg.Mode == "" {
		cfg.Mode = MatchFirst
	}
	m := &Matcher{
		cfg:      cfg,
		existing: existing,
		index:    make(map[string][]int, len(existing)),
		headers:  matchHeaders(cfg.Fields),
	}
	for i, rec := range existing {
		if k, ok := recordMatchKey(rec, cfg.Fields); ok {
			m.index[k] = append(m.index[k], i)
		}
	}
	return m
}

// Lookup returns the records matching row and the composite key used.
// ok is false when every match value of the row is empty.
func (m *Matcher) Lookup(row Row) (matches []Row, key string, ok bool) {
	key, ok = rowMatchKey(row, m.headers)
	if !ok {
		return nil, "", false
	}
	for _, i := range m.index[key] {
		matches = append(matches, m.existing[i])
	}
	return matches, key, true
}

// Match classifies every row. Rows with validator errors are ERROR and
// are not matched. validator may be nil.
func (m *Matcher) Match(rows []Row, validator Validator) MatchReport {
	report := MatchReport{Results: make([]MatchResult, 0, len(rows))}
	firstLine := make(map[string]int)

	for i, row := range rows {
		res := MatchResult{Line: i + 2, Row: row}

		if validator != nil {
			if errs := validator.Validate(row); len(errs) > 0 {
				res.Action = ActionError
				res.Errors = errs
				report.add(res)
				continue
			}
		}

		matches, key, ok := m.Lookup(row)
		if !ok {
			res.Action = ActionCreate
			report.add(res)
			continue
		}
		res.Key = strings.ReplaceAll(key, matchKeySep, " | ")

		if first, seen := firstLine[key]; seen {
			report.Summary.DuplicateInFile++
			if m.cfg.Mode == MatchStrict {
				res.Action = ActionError
				res.Errors = []ValidationError{{
					Field:   m.fieldNames(),
					Value:   res.Key,
					Message: fmt.Sprintf("duplicate row in file (first seen on line %d)", first),
				}}
				report.add(res)
				continue
			}
		} else {
			firstLine[key] = res.Line
		}

		switch {
		case len(matches) == 0:
			res.Action = ActionCreate
		case len(matches) > 1 && m.cfg.Mode == MatchStrict:
			res.Action = ActionError
			res.Errors = []ValidationError{{
				Field:   m.fieldNames(),
				Value:   res.Key,
				Message: fmt.Sprintf("multiple existing records match (%d)", len(matches)),
			}}
		default:
			rec := matches[0]
			res.Action = ActionUpdate
			res.MatchedRecord = &rec
		}
		report.add(res)
	}
	return report
}

// MatchRecords builds a Matcher over existing and classifies rows.
func MatchRecords(rows, existing []Row, cfg MatchConfig, validator Validator) MatchReport {
	return NewMatcher(existing, cfg).Match(rows, validator)
}

func (r *MatchReport) add(res MatchResult) {
	r.Summary.Total++
	switch res.Action {
	case ActionCreate:
		r.Summary.Create++
	case ActionUpdate:
		r.Summary.Update++
	case ActionError:
		r.Summary.Error++
	}
	r.Results = append(r.Results, res)
}

func (m *Matcher) fieldNames() string {
	names := make([]string, len(m.cfg.Fields))
	for i, f := range m.cfg.Fields {
		names[i] = f.Key
	}
	return strings.Join(names, "+")
}

// matchKeySep joins composite key parts; it cannot appear in trimmed cells.
const matchKeySep = "\x1f"

func matchHeaders(fields []MatchField) *headerResolver {
	candidates := make([][]string, len(fields))
	for i, f := range fields {
		candidates[i] = f.candidates()
	}
	return newHeaderResolver(candidates...)
}

func rowMatchKey(row Row, headers *headerResolver) (string, bool) {
	keys := headers.keys(row)
	parts := make([]string, len(keys))
	nonEmpty := false
	for i, key := range keys {
		var v any
		if key != "" {
			v, _ = row.Get(key)
		}
		parts[i] = normalizeMatchValue(v)
		if parts[i] != "" {
			nonEmpty = true
		}
	}
	return strings.Join(parts, matchKeySep), nonEmpty
}

func recordMatchKey(rec Row, fields []MatchField) (string, bool) {
	parts := make([]string, len(fields))
	nonEmpty := false
	for i, f := range fields {
		v, _ := rec.Get(f.Key)
		parts[i] = normalizeMatchValue(v)
		if parts[i] != "" {
			nonEmpty = true
		}
	}
	return strings.Join(parts, matchKeySep), nonEmpty
}
