package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kalambet/jobportal/internal/filter"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS records (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    position   INTEGER NOT NULL,
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_records_collection_position ON records(collection, position);
CREATE TABLE IF NOT EXISTS operators (
    email         TEXT PRIMARY KEY,
    role          TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PGStore keeps collections in Postgres for deployments that share data
// between portal instances.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// OpenPostgres connects to databaseURL and creates the schema if needed.
func OpenPostgres(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := NewPostgresPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) SeedCollection(ctx context.Context, collection string, records []filter.Record) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialise concurrent seeders of the same collection.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, collection); err != nil {
		return false, fmt.Errorf("locking %s: %w", collection, err)
	}
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM records WHERE collection = $1`, collection).Scan(&n); err != nil {
		return false, fmt.Errorf("counting %s: %w", collection, err)
	}
	if n > 0 {
		return false, nil
	}

	batch := &pgx.Batch{}
	for i, r := range records {
		id := r.ID()
		if id == "" {
			return false, fmt.Errorf("seeding %s: record %d has no id", collection, i)
		}
		data, err := encodeRecord(r)
		if err != nil {
			return false, err
		}
		batch.Queue(`INSERT INTO records (collection, id, position, data) VALUES ($1, $2, $3, $4)`,
			collection, id, i, string(data))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("inserting %s: %w", collection, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing seed of %s: %w", collection, err)
	}
	return true, nil
}

func (s *PGStore) ListRecords(ctx context.Context, collection string) ([]filter.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data::text FROM records WHERE collection = $1 ORDER BY position ASC`, collection)
	if err != nil {
		return nil, fmt.Errorf("listRecords query: %w", err)
	}
	defer rows.Close()

	out := make([]filter.Record, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("listRecords scan: %w", err)
		}
		r, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", collection, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) GetRecord(ctx context.Context, collection, id string) (filter.Record, error) {
	var data string
	err := s.pool.QueryRow(ctx,
		`SELECT data::text FROM records WHERE collection = $1 AND id = $2`, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord([]byte(data))
}

func (s *PGStore) UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (filter.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var data string
	err = tx.QueryRow(ctx,
		`SELECT data::text FROM records WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	current, err := decodeRecord([]byte(data))
	if err != nil {
		return nil, err
	}
	encoded, err := encodeRecord(mergeFields(current, fields))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE records SET data = $1, updated_at = now() WHERE collection = $2 AND id = $3`,
		string(encoded), collection, id); err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return decodeRecord(encoded)
}

func (s *PGStore) DeleteRecord(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT collection FROM records ORDER BY collection`)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collections: %w", err)
	}
	return names, nil
}

func (s *PGStore) UpsertOperator(ctx context.Context, op Operator) error {
	created := op.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO operators (email, role, password_hash, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, password_hash = EXCLUDED.password_hash`,
		op.Email, op.Role, op.PasswordHash, created.UTC())
	return err
}

func (s *PGStore) GetOperator(ctx context.Context, email string) (Operator, error) {
	var op Operator
	err := s.pool.QueryRow(ctx,
		`SELECT email, role, password_hash, created_at FROM operators WHERE email = $1`, email,
	).Scan(&op.Email, &op.Role, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Operator{}, ErrNotFound
	}
	return op, err
}

func (s *PGStore) ListOperators(ctx context.Context) ([]Operator, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email, role, password_hash, created_at FROM operators ORDER BY role, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Operator
	for rows.Next() {
		var op Operator
		if err := rows.Scan(&op.Email, &op.Role, &op.PasswordHash, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("listOperators scan: %w", err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}
