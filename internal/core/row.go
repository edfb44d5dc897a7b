package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is an ordered mapping from string keys to cell values.
//
// On the export side keys are ColumnDefinition keys. On the import side keys
// are the header strings exactly as they appear in the uploaded file, in
// sheet column order. The zero value is an empty row ready for use.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from alternating key/value pairs.
// It panics on an odd number of arguments or a non-string key.
func NewRow(kv ...any) Row {
	if len(kv)%2 != 0 {
		panic("core.NewRow: odd number of arguments")
	}
	r := Row{}
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("core.NewRow: key %v is not a string", kv[i]))
		}
		r.Set(k, kv[i+1])
	}
	return r
}

// Len returns the number of keys.
func (r Row) Len() int { return len(r.keys) }

// Keys returns the keys in insertion order. The slice is a copy.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value stored under key and whether the key exists.
func (r Row) Get(key string) (any, bool) {
	if r.values == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key exists.
func (r Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key. Missing keys are ignored.
func (r *Row) Delete(key string) {
	if _, ok := r.Get(key); !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a shallow copy that can be modified independently.
func (r Row) Clone() Row {
	out := Row{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Map returns the row as a plain map. Key order is lost.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// String returns the value under key formatted for comparison and display.
// Missing keys and nil values yield "".
func (r Row) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return stringifyValue(v)
}

// MarshalJSON encodes the row as a JSON object preserving key order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
// Numbers are kept as json.Number so integer ids survive unchanged.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	row, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// decodeObject reads one JSON object from dec, including its opening brace.
func decodeObject(dec *json.Decoder) (Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return Row{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Row{}, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var row Row
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Row{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Row{}, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return Row{}, fmt.Errorf("decode %q: %w", key, err)
		}
		row.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return Row{}, err
	}
	if row.values == nil {
		row.values = make(map[string]any)
	}
	return row, nil
}
