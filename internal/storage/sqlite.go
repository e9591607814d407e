package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kalambet/jobportal/internal/filter"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the portal's collections and operator accounts.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database that vanishes on Close.
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "jobportal.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection: an in-memory database is per connection, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that have not been recorded in schema_version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Records ---

// SeedCollection inserts records into an empty collection, keeping their order.
// It reports false and changes nothing when the collection already has rows.
func (s *Store) SeedCollection(ctx context.Context, collection string, records []filter.Record) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE collection = ?", collection).Scan(&n); err != nil {
		return false, fmt.Errorf("counting %s: %w", collection, err)
	}
	if n > 0 {
		return false, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i, r := range records {
		id := r.ID()
		if id == "" {
			return false, fmt.Errorf("seeding %s: record %d has no id", collection, i)
		}
		data, err := encodeRecord(r)
		if err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (collection, id, position, data, updated_at) VALUES (?, ?, ?, ?, ?)`,
			collection, id, i, string(data), now,
		); err != nil {
			return false, fmt.Errorf("inserting %s/%s: %w", collection, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing seed of %s: %w", collection, err)
	}
	return true, nil
}

// ListRecords returns a collection in seed order. An unknown collection is empty.
func (s *Store) ListRecords(ctx context.Context, collection string) ([]filter.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM records WHERE collection = ? ORDER BY position ASC`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]filter.Record, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		r, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", collection, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRecord(ctx context.Context, collection, id string) (filter.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord([]byte(data))
}

// UpdateRecord merges fields into a record and returns the result.
func (s *Store) UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (filter.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	current, err := decodeRecord([]byte(data))
	if err != nil {
		return nil, err
	}

	updated := mergeFields(current, fields)
	encoded, err := encodeRecord(updated)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(encoded), time.Now().UTC().Format(time.RFC3339), collection, id,
	); err != nil {
		return nil, fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	// Re-decode so the caller sees the same value types a later read would.
	return decodeRecord(encoded)
}

func (s *Store) DeleteRecord(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Collections lists the names of non-empty collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection FROM records ORDER BY collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// --- Operators ---

func (s *Store) UpsertOperator(ctx context.Context, op Operator) error {
	created := op.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operators (email, role, password_hash, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET role = excluded.role, password_hash = excluded.password_hash`,
		op.Email, op.Role, op.PasswordHash, created.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetOperator(ctx context.Context, email string) (Operator, error) {
	var op Operator
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT email, role, password_hash, created_at FROM operators WHERE email = ?`, email,
	).Scan(&op.Email, &op.Role, &op.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Operator{}, ErrNotFound
	}
	if err != nil {
		return Operator{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Operator{}, fmt.Errorf("parsing created_at: %w", err)
	}
	op.CreatedAt = t
	return op, nil
}

func (s *Store) ListOperators(ctx context.Context) ([]Operator, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, role, password_hash, created_at FROM operators ORDER BY role, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Operator
	for rows.Next() {
		var op Operator
		var createdAt string
		if err := rows.Scan(&op.Email, &op.Role, &op.PasswordHash, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		op.CreatedAt = t
		out = append(out, op)
	}
	return out, rows.Err()
}
