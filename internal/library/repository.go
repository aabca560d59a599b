// ABOUTME: Typed repository over the record store for library entities
// ABOUTME: Handles JSON encoding, the category index, usage recording and count reconciliation

package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/2389/templatekit/internal/store"
)

// Keys in the meta collection
const (
	KeySettings      = "settings"
	KeyLicense       = "license"
	KeySchemaVersion = "schema_version"
)

// IndexCategory is the templates index keyed by Template.Category.
const IndexCategory = "category"

// Repository provides typed access to library entities.
type Repository struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRepository creates a Repository backed by s.
func NewRepository(s store.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  s,
		logger: logger.With("component", "library"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Now returns the repository's current time.
func (r *Repository) Now() time.Time {
	return r.now()
}

// SetClock overrides the time source. Intended for tests.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// Categories

// GetCategory returns the category with the given id.
func (r *Repository) GetCategory(ctx context.Context, id string) (*Category, error) {
	var c Category
	if err := r.get(ctx, store.CollectionCategories, id, "category", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns every category ordered by id.
func (r *Repository) ListCategories(ctx context.Context) ([]*Category, error) {
	recs, err := r.store.ListAll(ctx, store.CollectionCategories)
	if err != nil {
		return nil, &StorageError{Op: "listing categories", Err: err}
	}
	out := make([]*Category, 0, len(recs))
	for _, rec := range recs {
		var c Category
		if err := json.Unmarshal(rec.Data, &c); err != nil {
			return nil, fmt.Errorf("decoding category %s: %w", rec.Key, err)
		}
		out = append(out, &c)
	}
	return out, nil
}

// PutCategory inserts or replaces a category.
func (r *Repository) PutCategory(ctx context.Context, c *Category) error {
	return r.put(ctx, store.CollectionCategories, c.ID, nil, c)
}

// DeleteCategory removes a category record. Its templates are left in place.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.delete(ctx, store.CollectionCategories, id, "category")
}

// RecountCategory recomputes TemplateCount from the templates currently
// filed under the category and persists it when it changed.
func (r *Repository) RecountCategory(ctx context.Context, id string) (int, error) {
	c, err := r.GetCategory(ctx, id)
	if err != nil {
		return 0, err
	}
	recs, err := r.store.ListByIndex(ctx, store.CollectionTemplates, IndexCategory, id)
	if err != nil {
		return 0, &StorageError{Op: "counting templates for " + id, Err: err}
	}
	if c.TemplateCount == len(recs) {
		return c.TemplateCount, nil
	}
	c.TemplateCount = len(recs)
	if err := r.PutCategory(ctx, c); err != nil {
		return 0, err
	}
	r.logger.Debug("recounted category", "id", id, "template_count", c.TemplateCount)
	return c.TemplateCount, nil
}

// Templates

// GetTemplate returns the template with the given id.
func (r *Repository) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var t Template
	if err := r.get(ctx, store.CollectionTemplates, id, "template", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns every template ordered by id.
func (r *Repository) ListTemplates(ctx context.Context) ([]*Template, error) {
	recs, err := r.store.ListAll(ctx, store.CollectionTemplates)
	if err != nil {
		return nil, &StorageError{Op: "listing templates", Err: err}
	}
	return decodeTemplates(recs)
}

// ListTemplatesByCategory returns the templates filed under a category.
func (r *Repository) ListTemplatesByCategory(ctx context.Context, categoryID string) ([]*Template, error) {
	recs, err := r.store.ListByIndex(ctx, store.CollectionTemplates, IndexCategory, categoryID)
	if err != nil {
		return nil, &StorageError{Op: "listing templates for " + categoryID, Err: err}
	}
	return decodeTemplates(recs)
}

// PutTemplate inserts or replaces a template. Category counts are not touched.
func (r *Repository) PutTemplate(ctx context.Context, t *Template) error {
	return r.put(ctx, store.CollectionTemplates, t.ID, map[string]string{IndexCategory: t.Category}, t)
}

// DeleteTemplate removes a template and recounts its category.
func (r *Repository) DeleteTemplate(ctx context.Context, id string) error {
	t, err := r.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := r.delete(ctx, store.CollectionTemplates, id, "template"); err != nil {
		return err
	}
	if _, err := r.RecountCategory(ctx, t.Category); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// RecordUsage increments a template's usage counter and refreshes UpdatedAt.
func (r *Repository) RecordUsage(ctx context.Context, id string) (*Template, error) {
	t, err := r.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	t.UsageCount++
	t.UpdatedAt = r.now()
	if err := r.PutTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Settings, license and schema marker

// GetSettings returns the stored settings.
func (r *Repository) GetSettings(ctx context.Context) (*Settings, error) {
	var s Settings
	if err := r.get(ctx, store.CollectionMeta, KeySettings, "settings", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSettings replaces the stored settings.
func (r *Repository) PutSettings(ctx context.Context, s *Settings) error {
	return r.put(ctx, store.CollectionMeta, KeySettings, nil, s)
}

// GetLicense returns the stored license.
func (r *Repository) GetLicense(ctx context.Context) (*License, error) {
	var l License
	if err := r.get(ctx, store.CollectionMeta, KeyLicense, "license", &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// PutLicense replaces the stored license.
func (r *Repository) PutLicense(ctx context.Context, l *License) error {
	return r.put(ctx, store.CollectionMeta, KeyLicense, nil, l)
}

// SchemaVersion returns the explicit schema marker. ok is false when none was written.
func (r *Repository) SchemaVersion(ctx context.Context) (version int, ok bool, err error) {
	rec, err := r.store.Get(ctx, store.CollectionMeta, KeySchemaVersion)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &StorageError{Op: "reading schema version", Err: err}
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(rec.Data)))
	if err != nil {
		return 0, false, fmt.Errorf("decoding schema version %q: %w", rec.Data, err)
	}
	return v, true, nil
}

// SetSchemaVersion writes the schema marker.
func (r *Repository) SetSchemaVersion(ctx context.Context, version int) error {
	err := r.store.Put(ctx, &store.Record{
		Collection: store.CollectionMeta,
		Key:        KeySchemaVersion,
		Data:       []byte(strconv.Itoa(version)),
		UpdatedAt:  r.now(),
	})
	if err != nil {
		return &StorageError{Op: "writing schema version", Err: err}
	}
	return nil
}

// Keyword stats

// ListKeywordStats returns every keyword stats record ordered by keyword.
func (r *Repository) ListKeywordStats(ctx context.Context) ([]*KeywordStats, error) {
	recs, err := r.store.ListAll(ctx, store.CollectionKeywordStats)
	if err != nil {
		return nil, &StorageError{Op: "listing keyword stats", Err: err}
	}
	out := make([]*KeywordStats, 0, len(recs))
	for _, rec := range recs {
		var ks KeywordStats
		if err := json.Unmarshal(rec.Data, &ks); err != nil {
			return nil, fmt.Errorf("decoding keyword stats %s: %w", rec.Key, err)
		}
		out = append(out, &ks)
	}
	return out, nil
}

// PutKeywordStats inserts or replaces a keyword stats record.
func (r *Repository) PutKeywordStats(ctx context.Context, ks *KeywordStats) error {
	return r.put(ctx, store.CollectionKeywordStats, ks.Keyword, nil, ks)
}

// RecordKeyword counts a keyword match and, when chosen is set, a selection.
func (r *Repository) RecordKeyword(ctx context.Context, keyword string, chosen bool) (*KeywordStats, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, &ValidationError{Entity: "keyword stats", Reasons: []string{"keyword is required"}}
	}

	var ks KeywordStats
	err := r.get(ctx, store.CollectionKeywordStats, keyword, "keyword stats", &ks)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	ks.Keyword = keyword
	ks.Matches++
	if chosen {
		ks.Chosen++
	}
	ks.LastSeenAt = r.now()

	if err := r.PutKeywordStats(ctx, &ks); err != nil {
		return nil, err
	}
	return &ks, nil
}

// Ad packs

// ListAdPacks returns metadata for every installed ad pack.
func (r *Repository) ListAdPacks(ctx context.Context) ([]*AdPackMeta, error) {
	recs, err := r.store.ListAll(ctx, store.CollectionAdPacks)
	if err != nil {
		return nil, &StorageError{Op: "listing ad packs", Err: err}
	}
	out := make([]*AdPackMeta, 0, len(recs))
	for _, rec := range recs {
		var m AdPackMeta
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			return nil, fmt.Errorf("decoding ad pack %s: %w", rec.Key, err)
		}
		out = append(out, &m)
	}
	return out, nil
}

// PutAdPack records an installed ad pack.
func (r *Repository) PutAdPack(ctx context.Context, m *AdPackMeta) error {
	return r.put(ctx, store.CollectionAdPacks, m.ID, nil, m)
}

func (r *Repository) get(ctx context.Context, collection, key, kind string, v any) error {
	rec, err := r.store.Get(ctx, collection, key)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: key}
	}
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("reading %s %s", kind, key), Err: err}
	}
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return fmt.Errorf("decoding %s %s: %w", kind, key, err)
	}
	return nil
}

func (r *Repository) put(ctx context.Context, collection, key string, indexes map[string]string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", collection, key, err)
	}
	err = r.store.Put(ctx, &store.Record{
		Collection: collection,
		Key:        key,
		Data:       data,
		Indexes:    indexes,
		UpdatedAt:  r.now(),
	})
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("writing %s %s", collection, key), Err: err}
	}
	return nil
}

func (r *Repository) delete(ctx context.Context, collection, key, kind string) error {
	err := r.store.Delete(ctx, collection, key)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: key}
	}
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("deleting %s %s", kind, key), Err: err}
	}
	return nil
}

func decodeTemplates(recs []*store.Record) ([]*Template, error) {
	out := make([]*Template, 0, len(recs))
	for _, rec := range recs {
		var t Template
		if err := json.Unmarshal(rec.Data, &t); err != nil {
			return nil, fmt.Errorf("decoding template %s: %w", rec.Key, err)
		}
		out = append(out, &t)
	}
	return out, nil
}
