package core

import (
	"context"
	"strings"
)

// RecordIDField carries a stored record's id on loaded rows. The leading
// underscore keeps it out of persisted payloads.
const RecordIDField = "_id"

// RecordStore is the persistence collaborator: it loads the records an
// import is matched against and applies the chosen changes.
type RecordStore interface {
	LoadRecords(ctx context.Context, dataset string) ([]Row, error)
	Apply(ctx context.Context, dataset string, changes []Change) (ApplyResult, error)
}

// Change is one sanitized payload to persist.
type Change struct {
	Line     int         `json:"line"`
	Action   MatchAction `json:"action"`
	RecordID string      `json:"recordId,omitempty"` // set for ActionUpdate
	Payload  Row         `json:"payload"`
}

// RowError reports a row that could not be applied.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ApplyResult counts applied changes.
type ApplyResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors,omitempty"`
}

// DatasetInfo contains display information about a dataset.
type DatasetInfo struct {
	Key         string   `json:"key"`   // unique identifier: "companies"
	Group       string   `json:"group"` // menu group: "Directory"
	Label       string   `json:"label"` // display name: "Companies"
	Description string   `json:"description,omitempty"`
	Columns     []string `json:"columns"` // header labels
}

// PrepareFunc turns stored records into export rows and the matching
// (possibly expanded) column schema. categories holds the records of the
// dataset's CategorySource.
type PrepareFunc func(records []Row, columns ColumnSchema, categories []Row) ([]Row, ColumnSchema)

// TransformFunc adjusts an import payload keyed by column key before it is
// sanitized. It may add "_"-prefixed bookkeeping fields.
type TransformFunc func(payload Row) Row

// DatasetDefinition contains everything needed to export and import a dataset.
type DatasetDefinition struct {
	Info    DatasetInfo
	Columns ColumnSchema // domain shape; a Categories column marks category membership
	Match   MatchConfig
	Rules   []Rule

	// CategorySource names the dataset holding {slug, name} category records.
	CategorySource string

	// Prepare defaults to exporting records unchanged with Columns.
	Prepare   PrepareFunc
	Transform TransformFunc

	rules   *RuleValidator
	payload *rowColumns
}

// ExportFileBase returns the file name base used for downloads.
func (d DatasetDefinition) ExportFileBase() string {
	return strings.ReplaceAll(d.Info.Key, "_", "-")
}

// Payload builds the persistable form of a raw import row: values keyed by
// column key and typed by column type, passed through Transform and
// sanitized.
func (d DatasetDefinition) Payload(row Row) Row {
	columns := d.payload
	if columns == nil {
		columns = newRowColumns(d.Columns)
	}
	var payload Row
	columns.each(row, func(col ColumnDefinition, raw any, ok bool) {
		if ok {
			payload.Set(col.Key, typedValue(raw, col.Type))
		}
	})
	if d.Transform != nil {
		payload = d.Transform(payload)
	}
	return SanitizeRow(payload)
}
