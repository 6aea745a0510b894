package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/askdoc/askdoc/internal/log"
)

// PgxStore persists records in PostgreSQL with the pgvector extension.
// Replace runs in a single transaction, so concurrent searches observe
// either the old or the new collection content.
//
// The pool must have pgvector types registered (see app.provideDBPool and
// testutil.SetupTestDB).
type PgxStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPgxStore wraps an existing connection pool. The pool's lifecycle is
// managed by the caller.
func NewPgxStore(pool *pgxpool.Pool, logger log.Logger) *PgxStore {
	return &PgxStore{pool: pool, logger: logger}
}

// Replace deletes the collection's rows and inserts the new records inside
// one transaction.
func (s *PgxStore) Replace(ctx context.Context, collection string, records []Record) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op after commit.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM passages WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("clearing collection %q: %w", collection, err)
	}

	for _, rec := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO passages (collection, chunk_id, content, page, seq, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			collection, rec.ChunkID, rec.Text, rec.Page, rec.Seq, pgvector.NewVector(rec.Vector))
		if err != nil {
			return fmt.Errorf("inserting chunk %q: %w", rec.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}

	s.logger.Debug("collection replaced", "collection", collection, "records", len(records))
	return nil
}

// Search runs a cosine-distance query ordered by similarity, breaking ties
// by insertion order.
func (s *PgxStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error) {
	exists, err := s.Exists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: collection %q has not been built", ErrIndexNotFound, collection)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, content, page, seq,
		       1 - (embedding <=> $2) AS similarity
		FROM passages
		WHERE collection = $1
		ORDER BY embedding <=> $2, seq
		LIMIT $3`,
		collection, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", collection, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var similarity float64
		if err := rows.Scan(&hit.Record.ChunkID, &hit.Record.Text,
			&hit.Record.Page, &hit.Record.Seq, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		hit.Similarity = float32(similarity)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return hits, nil
}

// Exists reports whether the collection has any rows.
func (s *PgxStore) Exists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM passages WHERE collection = $1)`,
		collection).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking collection %q: %w", collection, err)
	}
	return exists, nil
}

// Count returns the number of rows in the collection.
func (s *PgxStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.Exists(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: collection %q has not been built", ErrIndexNotFound, collection)
	}

	var count int
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM passages WHERE collection = $1`,
		collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", collection, err)
	}
	return count, nil
}
