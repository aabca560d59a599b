// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers record CRUD, index replacement, ordering and reopen persistence

package store

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestPutAndGet(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &Record{
		Collection: CollectionTemplates,
		Key:        "t1",
		Data:       []byte(`{"id":"t1"}`),
		Indexes:    map[string]string{"category": "c1"},
	}

	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, CollectionTemplates, "t1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != `{"id":"t1"}` {
		t.Errorf("Data mismatch: got %q", got.Data)
	}
	if got.Indexes["category"] != "c1" {
		t.Errorf("Indexes mismatch: got %v", got.Indexes)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
	if !rec.UpdatedAt.IsZero() {
		t.Error("Put must not modify the caller's record")
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.Get(context.Background(), CollectionTemplates, "nonexistent")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPut_RequiresKey(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	err := store.Put(context.Background(), &Record{Collection: CollectionTemplates, Data: []byte("{}")})
	if err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestPut_ReplacesIndexes(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &Record{
		Collection: CollectionTemplates,
		Key:        "t1",
		Data:       []byte(`{}`),
		Indexes:    map[string]string{"category": "c1"},
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Move the record to another category
	rec.Indexes = map[string]string{"category": "c2"}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	old, err := store.ListByIndex(ctx, CollectionTemplates, "category", "c1")
	if err != nil {
		t.Fatalf("ListByIndex failed: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("expected no records under c1, got %d", len(old))
	}

	moved, err := store.ListByIndex(ctx, CollectionTemplates, "category", "c2")
	if err != nil {
		t.Fatalf("ListByIndex failed: %v", err)
	}
	if len(moved) != 1 || moved[0].Key != "t1" {
		t.Errorf("expected t1 under c2, got %v", moved)
	}
}

func TestListAll_OrderedByKey(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, key := range []string{"c", "a", "b"} {
		if err := store.Put(ctx, &Record{Collection: CollectionCategories, Key: key, Data: []byte("{}")}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	// Records in other collections must not leak
	if err := store.Put(ctx, &Record{Collection: CollectionMeta, Key: "x", Data: []byte("1")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	recs, err := store.ListAll(ctx, CollectionCategories)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if recs[i].Key != want {
			t.Errorf("recs[%d].Key = %q, want %q", i, recs[i].Key, want)
		}
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := &Record{
		Collection: CollectionTemplates,
		Key:        "t1",
		Data:       []byte(`{}`),
		Indexes:    map[string]string{"category": "c1"},
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Delete(ctx, CollectionTemplates, "t1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, CollectionTemplates, "t1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Index entries cascade with the record
	recs, err := store.ListByIndex(ctx, CollectionTemplates, "category", "c1")
	if err != nil {
		t.Fatalf("ListByIndex failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected index entries to be removed, got %d", len(recs))
	}

	if err := store.Delete(ctx, CollectionTemplates, "t1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestReopenPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Put(ctx, &Record{Collection: CollectionMeta, Key: "schema_version", Data: []byte("2")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	store.Close()

	// Migrations must be idempotent across reopen
	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, CollectionMeta, "schema_version")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != "2" {
		t.Errorf("Data = %q, want %q", got.Data, "2")
	}
}

func hasColumn(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()

	var exists int
	err := db.QueryRow(`SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&exists)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("reading table info: %v", err)
	}
	return true
}

func TestCreateSchema_IncludesUpdatedAt(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	s := &SQLiteStore{db: db, logger: slog.Default()}
	if err := s.createSchema(); err != nil {
		t.Fatalf("createSchema failed: %v", err)
	}

	if !hasColumn(t, db, "records", "updated_at") {
		t.Error("expected a fresh schema to include updated_at without migrations")
	}
}

func TestRunMigrations_UpgradesOlderFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE records (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			data       BLOB NOT NULL,
			PRIMARY KEY (collection, key)
		);
		INSERT INTO records (collection, key, data) VALUES ('meta', 'settings', '{}');
	`); err != nil {
		t.Fatalf("creating old schema: %v", err)
	}
	db.Close()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if !hasColumn(t, store.db, "records", "updated_at") {
		t.Fatal("expected updated_at to be added to an older file")
	}

	got, err := store.Get(context.Background(), CollectionMeta, "settings")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != "{}" {
		t.Errorf("Data mismatch: got %q", got.Data)
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	return store
}
