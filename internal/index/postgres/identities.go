package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-registry/internal/index"
)

// Index is a pgvector-backed similarity index over the identities table.
type Index struct {
	pool *Pool
	dim  int
}

var _ index.Index = (*Index)(nil)

// New creates a pgvector index and runs migrations for the given dimension.
func New(ctx context.Context, pool *Pool, dim int) (*Index, error) {
	idx := &Index{pool: pool, dim: dim}
	if err := idx.migrate(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// migrate creates the vector extension, the identities table and its indexes.
func (idx *Index) migrate(ctx context.Context) error {
	if _, err := idx.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return unavailable("create vector extension", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS identities (
			id                  UUID PRIMARY KEY,
			name                VARCHAR(100) NOT NULL,
			name_normalized     VARCHAR(100) NOT NULL,
			registration_number VARCHAR(50) NOT NULL,
			embedding           vector(%d) NOT NULL,
			created_at          TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, idx.dim)
	if _, err := idx.pool.Exec(ctx, createTable); err != nil {
		return unavailable("create identities table", err)
	}

	if _, err := idx.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS identities_registration_number_idx
		ON identities(registration_number)
	`); err != nil {
		return unavailable("create registration_number index", err)
	}

	if _, err := idx.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS identities_name_normalized_idx
		ON identities(name_normalized)
	`); err != nil {
		return unavailable("create name index", err)
	}

	// IVFFlat performs best once the table has data, but creating it up
	// front keeps startup simple; Postgres falls back to a flat scan on
	// small tables anyway.
	if _, err := idx.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS identities_embedding_idx
		ON identities USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`); err != nil {
		return unavailable("create vector index", err)
	}

	return nil
}

// Insert stores a record and returns its assigned ID.
func (idx *Index) Insert(ctx context.Context, rec index.Record) (string, error) {
	if len(rec.Embedding) != idx.dim {
		return "", &index.DimensionMismatchError{Expected: idx.dim, Actual: len(rec.Embedding)}
	}

	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := idx.pool.Exec(ctx, `
		INSERT INTO identities (id, name, name_normalized, registration_number, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5::vector, $6)
	`,
		rec.ID,
		rec.Name,
		index.NormalizeName(rec.Name),
		rec.RegistrationNumber,
		pgvector.NewVector(rec.Embedding),
		rec.CreatedAt,
	)
	if err != nil {
		return "", unavailable("insert identity", err)
	}

	return rec.ID, nil
}

// QueryByVector returns up to k nearest records by ascending cosine distance.
func (idx *Index) QueryByVector(ctx context.Context, embedding []float32, k int) ([]index.Match, error) {
	if len(embedding) != idx.dim {
		return nil, &index.DimensionMismatchError{Expected: idx.dim, Actual: len(embedding)}
	}

	vec := pgvector.NewVector(embedding)
	rows, err := idx.pool.Query(ctx, `
		SELECT id, name, registration_number, embedding, created_at,
		       embedding <=> $1::vector AS distance
		FROM identities
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, vec, k)
	if err != nil {
		return nil, unavailable("query identities", err)
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var m index.Match
		var stored pgvector.Vector
		if err := rows.Scan(
			&m.Record.ID,
			&m.Record.Name,
			&m.Record.RegistrationNumber,
			&stored,
			&m.Record.CreatedAt,
			&m.Distance,
		); err != nil {
			return nil, unavailable("scan identity", err)
		}
		m.Record.Embedding = stored.Slice()
		if len(m.Record.Embedding) != idx.dim {
			return nil, &index.DimensionMismatchError{Expected: idx.dim, Actual: len(m.Record.Embedding)}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate identities", err)
	}

	return matches, nil
}

// QueryByMetadata returns all records whose field matches value.
func (idx *Index) QueryByMetadata(ctx context.Context, field, value string) ([]index.Record, error) {
	var query string
	switch field {
	case index.FieldRegistrationNumber:
		query = `
			SELECT id, name, registration_number, embedding, created_at
			FROM identities WHERE registration_number = $1
		`
	case index.FieldName:
		value = index.NormalizeName(value)
		query = `
			SELECT id, name, registration_number, embedding, created_at
			FROM identities WHERE name_normalized = $1
		`
	default:
		return nil, fmt.Errorf("%w: %q", index.ErrUnsupportedField, field)
	}

	rows, err := idx.pool.Query(ctx, query, value)
	if err != nil {
		return nil, unavailable("query identities by metadata", err)
	}
	defer rows.Close()

	var records []index.Record
	for rows.Next() {
		var rec index.Record
		var stored pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.RegistrationNumber, &stored, &rec.CreatedAt); err != nil {
			return nil, unavailable("scan identity", err)
		}
		rec.Embedding = stored.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate identities", err)
	}

	return records, nil
}

// Delete removes a record by ID.
func (idx *Index) Delete(ctx context.Context, id string) error {
	if _, err := idx.pool.Exec(ctx, "DELETE FROM identities WHERE id = $1", id); err != nil {
		return unavailable("delete identity", err)
	}
	return nil
}

// Count returns the number of stored records.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := idx.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, unavailable("count identities", err)
	}
	return count, nil
}

// Drop removes all records. The table and its indexes survive, so the
// backend is immediately usable again.
func (idx *Index) Drop(ctx context.Context) error {
	if _, err := idx.pool.Exec(ctx, "TRUNCATE identities"); err != nil {
		return unavailable("truncate identities", err)
	}
	return nil
}

// Stats returns backend information.
func (idx *Index) Stats(ctx context.Context) (index.Stats, error) {
	count, err := idx.Count(ctx)
	if err != nil {
		return index.Stats{}, err
	}
	return index.Stats{
		Backend:      "postgres",
		Dimension:    idx.dim,
		TotalRecords: count,
	}, nil
}

// Close closes the underlying pool.
func (idx *Index) Close() error {
	return idx.pool.Close()
}

// unavailable wraps driver and network errors as retryable index errors.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", index.ErrUnavailable, op, err)
}
