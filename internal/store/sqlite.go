// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists records and their secondary indexes with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection keeps :memory: databases alive and matches the single-writer model
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			data       BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (collection, key)
		);

		CREATE TABLE IF NOT EXISTS record_indexes (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			name       TEXT NOT NULL,
			value      TEXT NOT NULL,
			PRIMARY KEY (collection, key, name),
			FOREIGN KEY (collection, key) REFERENCES records(collection, key) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_record_indexes_lookup
			ON record_indexes(collection, name, value);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations brings database files created by older builds up to the
// current schema. These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		check  string
		apply  string
		column string
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('records') WHERE name = 'updated_at'`,
			apply:  `ALTER TABLE records ADD COLUMN updated_at TEXT NOT NULL DEFAULT ''`,
			column: "updated_at",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to records: %w", m.column, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", "records")
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Get retrieves a record by collection and key.
// Returns ErrNotFound if the record doesn't exist.
func (s *SQLiteStore) Get(ctx context.Context, collection, key string) (*Record, error) {
	var rec Record
	var updatedAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT collection, key, data, updated_at
		FROM records
		WHERE collection = ? AND key = ?
	`, collection, key).Scan(&rec.Collection, &rec.Key, &rec.Data, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}
	rec.UpdatedAt = parseTime(updatedAtStr)

	indexes, err := s.loadIndexes(ctx, collection, key)
	if err != nil {
		return nil, err
	}
	rec.Indexes = indexes

	return &rec, nil
}

// Put inserts or replaces a record together with its index entries.
func (s *SQLiteStore) Put(ctx context.Context, rec *Record) error {
	if rec.Collection == "" || rec.Key == "" {
		return fmt.Errorf("record collection and key are required")
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (collection, key, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, rec.Collection, rec.Key, rec.Data, updatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upserting record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_indexes WHERE collection = ? AND key = ?`,
		rec.Collection, rec.Key,
	); err != nil {
		return fmt.Errorf("clearing record indexes: %w", err)
	}

	for name, value := range rec.Indexes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO record_indexes (collection, key, name, value)
			VALUES (?, ?, ?, ?)
		`, rec.Collection, rec.Key, name, value); err != nil {
			return fmt.Errorf("inserting index %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}

	s.logger.Debug("put record", "collection", rec.Collection, "key", rec.Key)
	return nil
}

// Delete removes a record and its index entries.
// Returns ErrNotFound if the record doesn't exist.
func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`,
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted record", "collection", collection, "key", key)
	return nil
}

// ListByIndex returns every record in collection whose index entry name equals value,
// ordered by key.
func (s *SQLiteStore) ListByIndex(ctx context.Context, collection, index, value string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.collection, r.key, r.data, r.updated_at
		FROM records r
		JOIN record_indexes i ON i.collection = r.collection AND i.key = r.key
		WHERE i.collection = ? AND i.name = ? AND i.value = ?
		ORDER BY r.key
	`, collection, index, value)
	if err != nil {
		return nil, fmt.Errorf("querying records by index: %w", err)
	}

	recs, err := s.scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return recs, s.attachIndexes(ctx, recs)
}

// ListAll returns every record in collection ordered by key.
func (s *SQLiteStore) ListAll(ctx context.Context, collection string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, key, data, updated_at
		FROM records
		WHERE collection = ?
		ORDER BY key
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}

	recs, err := s.scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return recs, s.attachIndexes(ctx, recs)
}

func (s *SQLiteStore) scanRecords(rows *sql.Rows) ([]*Record, error) {
	defer func() { _ = rows.Close() }()

	var recs []*Record
	for rows.Next() {
		var rec Record
		var updatedAtStr string
		if err := rows.Scan(&rec.Collection, &rec.Key, &rec.Data, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.UpdatedAt = parseTime(updatedAtStr)
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return recs, nil
}

// attachIndexes loads index entries after the record cursor is closed;
// the store holds a single connection.
func (s *SQLiteStore) attachIndexes(ctx context.Context, recs []*Record) error {
	for _, rec := range recs {
		indexes, err := s.loadIndexes(ctx, rec.Collection, rec.Key)
		if err != nil {
			return err
		}
		rec.Indexes = indexes
	}
	return nil
}

func (s *SQLiteStore) loadIndexes(ctx context.Context, collection, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value FROM record_indexes
		WHERE collection = ? AND key = ?
	`, collection, key)
	if err != nil {
		return nil, fmt.Errorf("querying record indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	indexes := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning record index: %w", err)
		}
		indexes[name] = value
	}
	return indexes, rows.Err()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
