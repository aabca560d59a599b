// ABOUTME: Export assembly: reads categories and templates and emits packs
// ABOUTME: Filters pre-built templates and strips internal fields on request

package packs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/templatekit/internal/library"
)

// ErrEmptyExport is returned when filtering leaves nothing to export.
var ErrEmptyExport = errors.New("no templates to export")

// ExportOptions controls a category export.
type ExportOptions struct {
	ExcludePrebuilt      bool
	RemoveInternalFields bool
	PackName             string
	PackVersion          string
	AllowEmpty           bool
}

// AdPackOptions controls an ad pack export.
type AdPackOptions struct {
	Header          AdPackHeader
	CategoryIDs     []string
	ExcludePrebuilt bool
	AllowEmpty      bool
}

// Exporter assembles packs from the library.
type Exporter struct {
	repo   *library.Repository
	logger *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(repo *library.Repository, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{repo: repo, logger: logger.With("component", "export")}
}

// ExportCategory builds a category pack for one category.
func (e *Exporter) ExportCategory(ctx context.Context, categoryID string, opts ExportOptions) (*library.CategoryPack, error) {
	cat, templates, err := e.load(ctx, categoryID, opts.ExcludePrebuilt)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 && !opts.AllowEmpty {
		return nil, fmt.Errorf("exporting category %s: %w", categoryID, ErrEmptyExport)
	}

	p := SerializeCategory(cat, templates, SerializeOptions{
		Name:                 opts.PackName,
		Version:              opts.PackVersion,
		RemoveInternalFields: opts.RemoveInternalFields,
		ExportedAt:           e.repo.Now(),
	})
	if err := sharedValidator().CategoryPack(p).Err("category pack"); err != nil {
		return nil, err
	}

	e.logger.Info("exported category", "category", categoryID, "templates", len(p.Templates))
	return p, nil
}

// ExportAdPack builds an ad pack spanning several categories.
func (e *Exporter) ExportAdPack(ctx context.Context, opts AdPackOptions) (*library.AdPack, error) {
	if len(opts.CategoryIDs) == 0 {
		return nil, &library.ValidationError{Entity: "ad pack", Reasons: []string{"categories is required"}}
	}

	groups := make([]CategoryTemplates, 0, len(opts.CategoryIDs))
	total := 0
	for _, id := range opts.CategoryIDs {
		cat, templates, err := e.load(ctx, id, opts.ExcludePrebuilt)
		if err != nil {
			return nil, err
		}
		groups = append(groups, CategoryTemplates{Category: cat, Templates: templates})
		total += len(templates)
	}
	if total == 0 && !opts.AllowEmpty {
		return nil, fmt.Errorf("exporting ad pack %s: %w", opts.Header.ID, ErrEmptyExport)
	}

	p := SerializeAdPack(opts.Header, groups, e.repo.Now())
	if err := sharedValidator().AdPack(p).Err("ad pack"); err != nil {
		return nil, err
	}

	e.logger.Info("exported ad pack", "pack", p.ID, "categories", len(p.Categories), "templates", total)
	return p, nil
}

func (e *Exporter) load(ctx context.Context, categoryID string, excludePrebuilt bool) (*library.Category, []*library.Template, error) {
	cat, err := e.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	all, err := e.repo.ListTemplatesByCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	templates := all[:0]
	for _, t := range all {
		if excludePrebuilt && t.IsPrebuilt {
			continue
		}
		templates = append(templates, t)
	}
	return cat, templates, nil
}
