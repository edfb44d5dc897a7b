package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

// Memory is an in-process core.RecordStore. The CLI seeds it from files for
// offline previews; tests use it in place of PostgreSQL.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]core.Row
}

var _ core.RecordStore = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]core.Row)}
}

// Seed appends records to dataset. Records without an id get a new one.
func (m *Memory) Seed(dataset string, records []core.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		id := rec.String(core.RecordIDField)
		if id == "" {
			id = uuid.NewString()
		}
		m.records[dataset] = append(m.records[dataset], withID(id, rec))
	}
}

// LoadRecords returns copies of dataset's records.
func (m *Memory) LoadRecords(ctx context.Context, dataset string) ([]core.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Row, len(m.records[dataset]))
	for i, rec := range m.records[dataset] {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Apply mirrors Postgres.Apply: updates merge the payload into the stored
// record and unknown ids fail the row.
func (m *Memory) Apply(ctx context.Context, dataset string, changes []core.Change) (core.ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return core.ApplyResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var result core.ApplyResult
	for _, ch := range changes {
		payload := core.SanitizeRow(ch.Payload)

		switch ch.Action {
		case core.ActionCreate:
			m.records[dataset] = append(m.records[dataset], withID(uuid.NewString(), payload))
			result.Created++

		case core.ActionUpdate:
			idx := m.indexOf(dataset, ch.RecordID)
			if idx < 0 {
				result.Failed++
				result.Errors = append(result.Errors, core.RowError{
					Line:    ch.Line,
					Message: fmt.Sprintf("update %s: %v", ch.RecordID, errRecordNotFound),
				})
				continue
			}
			rec := m.records[dataset][idx]
			for _, k := range payload.Keys() {
				v, _ := payload.Get(k)
				rec.Set(k, v)
			}
			m.records[dataset][idx] = rec
			result.Updated++

		default:
			result.Failed++
			result.Errors = append(result.Errors, core.RowError{
				Line:    ch.Line,
				Message: fmt.Sprintf("unsupported action %q", ch.Action),
			})
		}
	}
	return result, nil
}

func (m *Memory) indexOf(dataset, id string) int {
	for i, rec := range m.records[dataset] {
		if rec.String(core.RecordIDField) == id {
			return i
		}
	}
	return -1
}

func withID(id string, fields core.Row) core.Row {
	rec := core.NewRow(core.RecordIDField, id)
	for _, k := range fields.Keys() {
		if k == core.RecordIDField {
			continue
		}
		v, _ := fields.Get(k)
		rec.Set(k, v)
	}
	return rec
}
