// ABOUTME: Tests for the export assembler against an in-memory store
// ABOUTME: Covers missing categories, empty results, filtering and ad pack export

package packs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/store"
)

func newTestExporter(t *testing.T) (*Exporter, *library.Repository) {
	t.Helper()
	repo := library.NewRepository(store.NewMockStore(), nil)
	repo.SetClock(func() time.Time { return fixedNow })

	cat, templates := storedCategory()
	ctx := context.Background()
	require.NoError(t, repo.PutCategory(ctx, cat))
	for _, tmpl := range templates {
		require.NoError(t, repo.PutTemplate(ctx, tmpl))
	}
	require.NoError(t, repo.PutCategory(ctx, &library.Category{ID: "empty", Name: "Empty"}))
	return NewExporter(repo, nil), repo
}

func TestExportCategory(t *testing.T) {
	exp, _ := newTestExporter(t)

	p, err := exp.ExportCategory(context.Background(), "c1", ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Sales Pack", p.Name)
	require.Len(t, p.Templates, 2)
	assert.Equal(t, "t1", p.Templates[0].ID)
	assert.Equal(t, "2026-03-01T12:00:00Z", p.Metadata["exportedAt"])
}

func TestExportCategory_Options(t *testing.T) {
	exp, _ := newTestExporter(t)

	p, err := exp.ExportCategory(context.Background(), "c1", ExportOptions{
		ExcludePrebuilt:      true,
		RemoveInternalFields: true,
		PackName:             "Starter",
		PackVersion:          "3.1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Starter", p.Name)
	assert.Equal(t, "3.1", p.Version)
	require.Len(t, p.Templates, 1)
	assert.Equal(t, "t1", p.Templates[0].ID)
	assert.Nil(t, p.Templates[0].UsageCount)
	assert.Equal(t, 1, p.Metadata["templateCount"])
}

func TestExportCategory_Missing(t *testing.T) {
	exp, _ := newTestExporter(t)

	_, err := exp.ExportCategory(context.Background(), "nope", ExportOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestExportCategory_Empty(t *testing.T) {
	exp, _ := newTestExporter(t)
	ctx := context.Background()

	_, err := exp.ExportCategory(ctx, "empty", ExportOptions{})
	assert.ErrorIs(t, err, ErrEmptyExport)

	p, err := exp.ExportCategory(ctx, "empty", ExportOptions{AllowEmpty: true})
	require.NoError(t, err)
	assert.Empty(t, p.Templates)
}

func TestExportAdPack(t *testing.T) {
	exp, _ := newTestExporter(t)
	ctx := context.Background()
	header := AdPackHeader{ID: "bundle", Name: "Bundle", Niche: "sales", Author: "me"}

	p, err := exp.ExportAdPack(ctx, AdPackOptions{Header: header, CategoryIDs: []string{"c1", "empty"}, ExcludePrebuilt: true})
	require.NoError(t, err)
	require.Len(t, p.Categories, 2)
	assert.Len(t, p.Categories[0].Templates, 1)
	assert.Equal(t, 1, p.Metadata.TotalTemplates)
	assert.Equal(t, DefaultVersion, p.Version)

	_, err = exp.ExportAdPack(ctx, AdPackOptions{Header: header, CategoryIDs: []string{"empty"}})
	assert.ErrorIs(t, err, ErrEmptyExport)

	_, err = exp.ExportAdPack(ctx, AdPackOptions{Header: header, CategoryIDs: []string{"c1", "nope"}})
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = exp.ExportAdPack(ctx, AdPackOptions{Header: header})
	assert.ErrorIs(t, err, library.ErrValidation)

	bad := header
	bad.Version = "1.0"
	_, err = exp.ExportAdPack(ctx, AdPackOptions{Header: bad, CategoryIDs: []string{"c1"}})
	assert.ErrorIs(t, err, library.ErrValidation)
}
