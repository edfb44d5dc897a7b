// Package store persists dataset records.
//
// Every dataset lives in one jsonb table keyed by (dataset, id). The payload
// is the sanitized row produced by an import; jsonb does not keep key order,
// which is fine because exports order columns by schema.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

// Schema creates the records table. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS dataset_records (
	id         uuid        PRIMARY KEY,
	dataset    text        NOT NULL,
	payload    jsonb       NOT NULL DEFAULT '{}'::jsonb,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS dataset_records_dataset_idx ON dataset_records (dataset, created_at);
`

// DBTX is the subset of pgxpool.Pool the store needs. pgx.Conn satisfies it
// too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres is a core.RecordStore backed by PostgreSQL.
type Postgres struct {
	db DBTX
}

var _ core.RecordStore = (*Postgres)(nil)

// NewPostgres creates a store over db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the records table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// LoadRecords returns every record of dataset in insertion order, each
// with its id under core.RecordIDField.
func (p *Postgres) LoadRecords(ctx context.Context, dataset string) ([]core.Row, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, payload FROM dataset_records WHERE dataset = $1 ORDER BY created_at, id`,
		dataset)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", dataset, err)
	}
	defer rows.Close()

	records := []core.Row{}
	for rows.Next() {
		var (
			id      pgtype.UUID
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dataset, err)
		}
		rec, err := decodeRecord(uuid.UUID(id.Bytes).String(), payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s record: %w", dataset, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", dataset, err)
	}
	return records, nil
}

// decodeRecord puts the id first so it sorts ahead of the payload fields.
func decodeRecord(id string, payload []byte) (core.Row, error) {
	var fields core.Row
	if err := json.Unmarshal(payload, &fields); err != nil {
		return core.Row{}, err
	}
	rec := core.NewRow(core.RecordIDField, id)
	for _, k := range fields.Keys() {
		if k == core.RecordIDField {
			continue
		}
		v, _ := fields.Get(k)
		rec.Set(k, v)
	}
	return rec, nil
}

// Apply writes changes in one transaction. Each change runs under its own
// savepoint, so a failing row is rolled back and reported without aborting
// the rest.
func (p *Postgres) Apply(ctx context.Context, dataset string, changes []core.Change) (core.ApplyResult, error) {
	var result core.ApplyResult

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, ch := range changes {
		if err := ctx.Err(); err != nil {
			return core.ApplyResult{}, err
		}

		rowErr, err := inSavepoint(ctx, tx, fmt.Sprintf("sp_%d", i), func() error {
			return applyChange(ctx, tx, dataset, ch)
		})
		if err != nil {
			return core.ApplyResult{}, err
		}
		if rowErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, core.RowError{Line: ch.Line, Message: rowErr.Error()})
			continue
		}

		if ch.Action == core.ActionUpdate {
			result.Updated++
		} else {
			result.Created++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return core.ApplyResult{}, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// execer is the part of pgx.Tx the savepoint helpers use.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// inSavepoint runs fn under the savepoint name. An error from fn is rolled
// back and returned as rowErr. err reports a savepoint statement that failed,
// after which the transaction cannot be trusted.
func inSavepoint(ctx context.Context, tx execer, name string, fn func() error) (rowErr, err error) {
	if _, err := tx.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("create savepoint: %w", err)
	}
	if rowErr = fn(); rowErr != nil {
		if _, err := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return rowErr, fmt.Errorf("rollback to savepoint: %w", err)
		}
		return rowErr, nil
	}
	if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	return nil, nil
}

var errRecordNotFound = errors.New("record not found")

func applyChange(ctx context.Context, tx pgx.Tx, dataset string, ch core.Change) error {
	payload, err := json.Marshal(core.SanitizeRow(ch.Payload))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	switch ch.Action {
	case core.ActionCreate:
		_, err := tx.Exec(ctx,
			`INSERT INTO dataset_records (id, dataset, payload) VALUES ($1, $2, $3::jsonb)`,
			uuid.New(), dataset, payload)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil

	case core.ActionUpdate:
		id, err := uuid.Parse(ch.RecordID)
		if err != nil {
			return fmt.Errorf("update: invalid record id %q", ch.RecordID)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE dataset_records SET payload = payload || $1::jsonb, updated_at = now() WHERE id = $2 AND dataset = $3`,
			payload, id, dataset)
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update %s: %w", ch.RecordID, errRecordNotFound)
		}
		return nil
	}
	return fmt.Errorf("unsupported action %q", ch.Action)
}
