package core

import (
	"bytes"
	"encoding/json"
	"sort"
)

// MetadataSheetName is the hidden sidecar sheet carrying the export schema.
const MetadataSheetName = "__export_metadata"

// MetadataCell is the cell of the sidecar sheet holding the JSON text.
const MetadataCell = "A1"

// Metadata is the self-describing schema written next to exported data.
// Extensions carry free-form fields (provenance tags, export time) that ride
// alongside Columns and are not needed for round-trip correctness.
type Metadata struct {
	Columns    ColumnSchema
	Extensions map[string]any
}

// EncodeMetadata serializes {"columns": schema, ...extensions} to JSON text.
// Columns are written first; extension keys follow in sorted order. An
// extension named "columns" is ignored so the schema stays authoritative.
func EncodeMetadata(schema ColumnSchema, extensions map[string]any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"columns":`)

	cols := schema
	if cols == nil {
		cols = ColumnSchema{}
	}
	cb, err := json.Marshal(cols)
	if err != nil {
		return "", err
	}
	buf.Write(cb)

	keys := make([]string, 0, len(extensions))
	for k := range extensions {
		if k == "columns" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		vb, err := json.Marshal(extensions[k])
		if err != nil {
			return "", err
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// DecodeMetadata parses metadata JSON text. It returns nil when the text is
// not valid JSON, is not an object, lacks a "columns" array, or any column
// cannot be decoded. Metadata is optional: callers fall back to raw rows.
func DecodeMetadata(text string) *Metadata {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}

	colsRaw, ok := raw["columns"]
	if !ok {
		return nil
	}
	trimmed := bytes.TrimSpace(colsRaw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var cols ColumnSchema
	if err := json.Unmarshal(trimmed, &cols); err != nil {
		return nil
	}
	for _, c := range cols {
		if c.Key == "" {
			return nil
		}
	}

	md := &Metadata{Columns: cols}
	for k, v := range raw {
		if k == "columns" {
			continue
		}
		var ext any
		if err := json.Unmarshal(v, &ext); err != nil {
			return nil
		}
		if md.Extensions == nil {
			md.Extensions = make(map[string]any)
		}
		md.Extensions[k] = ext
	}
	return md
}

// MarshalJSON encodes the metadata in its sheet form.
func (m Metadata) MarshalJSON() ([]byte, error) {
	text, err := EncodeMetadata(m.Columns, m.Extensions)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}
