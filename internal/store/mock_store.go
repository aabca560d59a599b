// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to count or fail writes

package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*Record // collection -> key -> record

	puts    int
	deletes int

	// FailGet, FailPut and FailDelete inject errors when they return non-nil.
	FailGet    func(collection, key string) error
	FailPut    func(rec *Record) error
	FailDelete func(collection, key string) error
	FailList   func(collection string) error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]map[string]*Record),
	}
}

// Get retrieves a record by collection and key.
func (m *MockStore) Get(ctx context.Context, collection, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailGet != nil {
		if err := m.FailGet(collection, key); err != nil {
			return nil, err
		}
	}

	rec, ok := m.records[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// Put stores a copy of the record.
func (m *MockStore) Put(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.Collection == "" || rec.Key == "" {
		return fmt.Errorf("record collection and key are required")
	}
	if m.FailPut != nil {
		if err := m.FailPut(rec); err != nil {
			return err
		}
	}

	stored := copyRecord(rec)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	if _, ok := m.records[rec.Collection]; !ok {
		m.records[rec.Collection] = make(map[string]*Record)
	}
	m.records[rec.Collection][rec.Key] = stored
	m.puts++
	return nil
}

// Delete removes a record.
func (m *MockStore) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDelete != nil {
		if err := m.FailDelete(collection, key); err != nil {
			return err
		}
	}

	if _, ok := m.records[collection][key]; !ok {
		return ErrNotFound
	}
	delete(m.records[collection], key)
	m.deletes++
	return nil
}

// ListByIndex returns records whose index entry matches, ordered by key.
func (m *MockStore) ListByIndex(ctx context.Context, collection, index, value string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailList != nil {
		if err := m.FailList(collection); err != nil {
			return nil, err
		}
	}

	var recs []*Record
	for _, key := range slices.Sorted(maps.Keys(m.records[collection])) {
		rec := m.records[collection][key]
		if v, ok := rec.Indexes[index]; ok && v == value {
			recs = append(recs, copyRecord(rec))
		}
	}
	return recs, nil
}

// ListAll returns every record in a collection, ordered by key.
func (m *MockStore) ListAll(ctx context.Context, collection string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailList != nil {
		if err := m.FailList(collection); err != nil {
			return nil, err
		}
	}

	var recs []*Record
	for _, key := range slices.Sorted(maps.Keys(m.records[collection])) {
		recs = append(recs, copyRecord(m.records[collection][key]))
	}
	return recs, nil
}

// Writes returns the number of successful puts and deletes so far.
func (m *MockStore) Writes() (puts, deletes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts, m.deletes
}

// ResetWrites zeroes the write counters.
func (m *MockStore) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts, m.deletes = 0, 0
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

func copyRecord(rec *Record) *Record {
	c := *rec
	c.Data = slices.Clone(rec.Data)
	if rec.Indexes != nil {
		c.Indexes = maps.Clone(rec.Indexes)
	}
	return &c
}
