// ABOUTME: Record store boundary used by the template library core
// ABOUTME: Defines Record and the Store interface (get/put/delete/list by key or index)

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Collection names used by the library
const (
	CollectionTemplates    = "templates"
	CollectionCategories   = "categories"
	CollectionMeta         = "meta"
	CollectionKeywordStats = "keyword_stats"
	CollectionAdPacks      = "ad_packs"
)

// Record is a single keyed value within a collection.
// Indexes maps secondary index names to the value this record is filed under.
type Record struct {
	Collection string
	Key        string
	Data       []byte
	Indexes    map[string]string
	UpdatedAt  time.Time
}

// Store is an abstract persistent map with secondary indexes.
// Put replaces the record and its index entries as a single unit.
type Store interface {
	Get(ctx context.Context, collection, key string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, collection, key string) error
	ListByIndex(ctx context.Context, collection, index, value string) ([]*Record, error)
	ListAll(ctx context.Context, collection string) ([]*Record, error)

	// Close releases any resources held by the store
	Close() error
}
