// ABOUTME: Import execution: purge, category writes, concurrent template writes, recount
// ABOUTME: Per-item storage failures are collected; conflicts abort before any write

package importer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/2389/templatekit/internal/library"
)

// Import plans and applies doc in one call.
func (m *Merger) Import(ctx context.Context, doc *library.Document, opts Options) (*Result, error) {
	plan, err := m.Plan(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	return m.Apply(ctx, plan)
}

// Apply executes a plan. A plan with pre-built conflicts is refused without
// writing anything. Failures writing individual categories or templates are
// reported in Result.Errors and do not stop the rest of the import.
func (m *Merger) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	if err := plan.Conflict(); err != nil {
		m.logger.Warn("import refused", "conflicts", len(plan.Conflicts))
		return nil, err
	}

	res := &Result{
		Errors:   slices.Clone(plan.Errors),
		Warnings: slices.Clone(plan.Warnings),
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	if err := m.purge(ctx, plan.Purge, res); err != nil {
		return res, err
	}

	touched := make(map[string]bool)
	for _, op := range plan.Categories {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch op.Action {
		case ActionCreate:
			cat := op.Category
			if err := m.repo.PutCategory(ctx, &cat); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("category %s: %v", op.SourceID, err))
				res.TemplatesSkipped += len(op.Templates)
				continue
			}
			res.CategoriesCreated++
		default:
			res.CategoriesSkipped++
		}
		touched[op.Category.ID] = true

		m.writeTemplates(ctx, op, res, touched)
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, err := m.repo.RecountCategory(ctx, id); err != nil && !errors.Is(err, library.ErrNotFound) {
			res.Errors = append(res.Errors, fmt.Sprintf("recounting category %s: %v", id, err))
		}
	}

	if plan.AdPack != nil {
		if err := m.repo.PutAdPack(ctx, plan.AdPack); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("recording ad pack %s: %v", plan.AdPack.ID, err))
		}
	}

	m.logger.Info("import applied",
		"kind", plan.Kind,
		"strategy", plan.Options.Strategy,
		"categories_created", res.CategoriesCreated,
		"categories_skipped", res.CategoriesSkipped,
		"templates_imported", res.TemplatesImported,
		"templates_updated", res.TemplatesUpdated,
		"templates_skipped", res.TemplatesSkipped,
		"errors", len(res.Errors),
	)
	return res, nil
}

// purge deletes user templates and then user categories. Any failure stops
// the import, since applying a pack over a half-purged store could collide.
func (m *Merger) purge(ctx context.Context, p Purge, res *Result) error {
	for _, id := range p.TemplateIDs {
		if err := m.repo.DeleteTemplate(ctx, id); err != nil && !errors.Is(err, library.ErrNotFound) {
			return fmt.Errorf("purging template %s: %w", id, err)
		}
		res.TemplatesDeleted++
	}
	for _, id := range p.CategoryIDs {
		if err := m.repo.DeleteCategory(ctx, id); err != nil && !errors.Is(err, library.ErrNotFound) {
			return fmt.Errorf("purging category %s: %w", id, err)
		}
		res.CategoriesDeleted++
	}
	if res.TemplatesDeleted > 0 || res.CategoriesDeleted > 0 {
		m.logger.Info("purged user content", "templates", res.TemplatesDeleted, "categories", res.CategoriesDeleted)
	}
	return nil
}

// writeTemplates writes one category's templates concurrently. The category
// itself has already been written.
func (m *Merger) writeTemplates(ctx context.Context, op *CategoryOp, res *Result, touched map[string]bool) {
	var (
		g errgroup.Group
		c counter
	)
	g.SetLimit(m.cfg.Concurrency)

	for _, tOp := range op.Templates {
		if tOp.Action == ActionSkip {
			res.TemplatesSkipped++
			continue
		}
		if tOp.Previous != "" {
			touched[tOp.Previous] = true
		}

		g.Go(func() error {
			t := tOp.Template
			if err := m.repo.PutTemplate(ctx, &t); err != nil {
				c.fail(fmt.Sprintf("template %s: %v", tOp.SourceID, err))
				return nil
			}
			c.ok(tOp.Action)
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(c.errs)
	res.TemplatesImported += c.imported
	res.TemplatesUpdated += c.updated
	res.Errors = append(res.Errors, c.errs...)
}
