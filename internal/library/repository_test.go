// ABOUTME: Tests for the library repository
// ABOUTME: Uses MockStore for encoding, indexing, recount and usage recording

package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/templatekit/internal/store"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repository, *store.MockStore) {
	t.Helper()
	ms := store.NewMockStore()
	repo := NewRepository(ms, nil)
	repo.SetClock(func() time.Time { return fixedNow })
	return repo, ms
}

func TestRepository_TemplateRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	tmpl := &Template{
		ID:        "t1",
		Label:     "Greeting",
		Category:  "c1",
		Keywords:  []string{"hello", "welcome"},
		Body:      "Hi there",
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	require.NoError(t, repo.PutTemplate(ctx, tmpl))

	got, err := repo.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tmpl, got)

	byCat, err := repo.ListTemplatesByCategory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "t1", byCat[0].ID)
}

func TestRepository_GetMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetCategory(context.Background(), "nope")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "category", nf.Kind)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_StorageErrorWrapped(t *testing.T) {
	repo, ms := newTestRepo(t)
	boom := errors.New("io error")
	ms.FailPut = func(*store.Record) error { return boom }

	err := repo.PutCategory(context.Background(), &Category{ID: "c1", Name: "Sales"})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, boom)
}

func TestRepository_RecountAndDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutCategory(ctx, &Category{ID: "c1", Name: "Sales", TemplateCount: 99}))
	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, repo.PutTemplate(ctx, &Template{ID: id, Label: id, Body: "b", Category: "c1"}))
	}

	n, err := repo.RecountCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, repo.DeleteTemplate(ctx, "t2"))
	c, err := repo.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.TemplateCount)
}

func TestRepository_DeleteTemplateDanglingCategory(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutTemplate(ctx, &Template{ID: "t1", Label: "x", Body: "b", Category: "gone"}))
	assert.NoError(t, repo.DeleteTemplate(ctx, "t1"))
}

func TestRepository_RecordUsage(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutTemplate(ctx, &Template{ID: "t1", Label: "x", Body: "b", UsageCount: 4}))

	got, err := repo.RecordUsage(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.UsageCount)
	assert.Equal(t, fixedNow, got.UpdatedAt)
}

func TestRepository_RecordKeyword(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.RecordKeyword(ctx, "  Refund ", false)
	require.NoError(t, err)
	ks, err := repo.RecordKeyword(ctx, "refund", true)
	require.NoError(t, err)

	assert.Equal(t, "refund", ks.Keyword)
	assert.Equal(t, 2, ks.Matches)
	assert.Equal(t, 1, ks.Chosen)

	_, err = repo.RecordKeyword(ctx, "   ", true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRepository_SchemaVersion(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := repo.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SetSchemaVersion(ctx, 2))
	v, ok, err := repo.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRepository_SettingsAndAdPacks(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	s := DefaultSettings()
	s.BusinessDescription = "Bakery"
	require.NoError(t, repo.PutSettings(ctx, &s))

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, *got)

	require.NoError(t, repo.PutAdPack(ctx, &AdPackMeta{ID: "ap1", Name: "Realtor", Version: "1.0.0", CategoryIDs: []string{"c9"}}))
	packs, err := repo.ListAdPacks(ctx)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, []string{"c9"}, packs[0].CategoryIDs)
}

func TestDefaultSettings_FreshCopy(t *testing.T) {
	a := DefaultSettings()
	a.Theme = "dark"
	b := DefaultSettings()
	assert.Equal(t, "system", b.Theme)
	assert.Equal(t, ProviderNone, b.AIProvider)
}
