// ABOUTME: Import tests against a real SQLite store
// ABOUTME: Exercises concurrent template writes through the single-connection database

package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/store"
)

func TestImport_SQLiteConcurrentWrites(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	repo := library.NewRepository(s, nil)
	repo.SetClock(func() time.Time { return fixedNow })

	require.NoError(t, repo.PutCategory(ctx, &library.Category{ID: "c1", Name: "Sales"}))
	require.NoError(t, repo.PutTemplate(ctx, &library.Template{ID: "t0", Label: "Existing", Category: "c1", Body: "hello"}))

	templates := []library.PackTemplate{packTemplate("t0", "Existing", "c1")}
	for i := 1; i <= 200; i++ {
		templates = append(templates, packTemplate(fmt.Sprintf("t%d", i), fmt.Sprintf("Template %d", i), "c1"))
	}

	cfg := DefaultConfig()
	cfg.Concurrency = 8
	res, err := NewMerger(repo, cfg, nil).Import(ctx, categoryPack("c1", templates...), Options{Strategy: StrategyMerge})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 200, res.TemplatesImported)
	assert.Equal(t, 1, res.TemplatesSkipped)
	assert.Equal(t, 1, res.CategoriesSkipped)

	stored, err := repo.ListTemplatesByCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, stored, 201)

	cat, err := repo.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 201, cat.TemplateCount)

	existing, err := repo.GetTemplate(ctx, "t0")
	require.NoError(t, err)
	assert.Equal(t, "hello", existing.Body)
}
