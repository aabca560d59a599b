// Package store provides the persistent record boundary for the template library.
//
// # Architecture
//
// The core never assumes a storage technology. It depends on the Store
// interface, an abstract persistent map with secondary indexes:
//
//   - Get(collection, key)
//   - Put(record) - replaces the record and its index entries as one unit
//   - Delete(collection, key)
//   - ListByIndex(collection, index, value)
//   - ListAll(collection)
//
// Collections used by the library:
//
//   - templates: one record per Template, indexed by "category"
//   - categories: one record per Category
//   - meta: settings, license and the schema_version marker
//   - keyword_stats: one record per keyword
//   - ad_packs: installed ad-pack metadata
//
// # SQLite Configuration
//
// SQLiteStore keeps records in two tables (records, record_indexes) and uses:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Database file locations:
//
//   - Default: ~/.local/share/templatekit/library.db
//   - Testing: :memory: or a file under t.TempDir()
//
// # Error Handling
//
// Get and Delete return ErrNotFound when the record does not exist. Other
// failures are wrapped with context via fmt.Errorf.
//
// # Testing
//
// Use NewMockStore() for unit tests. Its Fail* hooks inject storage errors
// and Writes() reports how many puts and deletes reached the store.
//
// # Migrations
//
// Table-level migrations run on open. Library-level schema generations are
// handled by internal/migrate, not here.
package store
