package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents in a single table with a JSONB payload.
// Merge maps to the JSONB || operator, which is atomic per row and thus
// gives the document-level atomicity the Store contract promises.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed document store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Get returns the raw document, or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	const q = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	var data []byte
	err := p.pool.QueryRow(ctx, q, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return data, nil
}

// Query returns all documents in a collection whose top-level field equals value.
func (p *Postgres) Query(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	const q = `SELECT data FROM documents WHERE collection = $1 AND data->>$2 = $3 ORDER BY created_at`
	rows, err := p.pool.Query(ctx, q, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	var out []json.RawMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

// Create inserts a new document. ErrExists if the id is already taken.
func (p *Postgres) Create(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	const q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`
	if _, err := p.pool.Exec(ctx, q, collection, id, body); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrExists
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Merge shallow-merges patch onto the stored document.
func (p *Postgres) Merge(ctx context.Context, collection, id string, patch map[string]any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	const q = `UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`
	tag, err := p.pool.Exec(ctx, q, collection, id, body)
	if err != nil {
		return fmt.Errorf("merge document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	_, err := p.pool.Exec(ctx, q, collection, id)
	return err
}
