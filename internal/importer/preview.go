// ABOUTME: Non-mutating import preview built from a plan
// ABOUTME: Adds advisory warnings for pre-built targets, pack size and keyword coverage

package importer

import (
	"context"
	"fmt"

	"github.com/2389/templatekit/internal/library"
)

// CategoryPreview describes what would happen to one incoming category.
type CategoryPreview struct {
	SourceID   string `json:"sourceId"`
	Name       string `json:"name"`
	TargetID   string `json:"targetId"`
	Exists     bool   `json:"exists"`
	Prebuilt   bool   `json:"prebuilt"`
	New        int    `json:"new"`
	Duplicates int    `json:"duplicates"`
}

// Preview is the outcome of an import that was planned but not applied.
type Preview struct {
	Categories         []CategoryPreview `json:"categories"`
	NewTemplates       int               `json:"newTemplates"`
	DuplicateTemplates int               `json:"duplicateTemplates"`
	PurgeTemplates     int               `json:"purgeTemplates"`
	PurgeCategories    int               `json:"purgeCategories"`
	MeanKeywords       float64           `json:"meanKeywords"`
	Errors             []string          `json:"errors"`
	Warnings           []string          `json:"warnings"`
}

// Preview partitions the incoming templates into new and duplicate without
// writing. Pre-built conflicts are reported as warnings rather than errors.
func (m *Merger) Preview(ctx context.Context, doc *library.Document, opts Options) (*Preview, error) {
	plan, err := m.Plan(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	pv := &Preview{
		PurgeTemplates:  len(plan.Purge.TemplateIDs),
		PurgeCategories: len(plan.Purge.CategoryIDs),
		Errors:          append([]string{}, plan.Errors...),
		Warnings:        append([]string{}, plan.Warnings...),
	}

	for _, op := range plan.Categories {
		cp := CategoryPreview{
			SourceID: op.SourceID,
			Name:     op.Category.Name,
			TargetID: op.Category.ID,
			Exists:   op.Action != ActionCreate,
			Prebuilt: op.Prebuilt,
		}
		for _, t := range op.Templates {
			switch {
			case t.Action == ActionCreate:
				cp.New++
			case t.Reason != reasonInvalid:
				cp.Duplicates++
			}
		}
		if op.Prebuilt {
			pv.Warnings = append(pv.Warnings, fmt.Sprintf("importing into pre-built category %q", op.Category.Name))
		}
		pv.NewTemplates += cp.New
		pv.DuplicateTemplates += cp.Duplicates
		pv.Categories = append(pv.Categories, cp)
	}

	total := doc.TemplateCount()
	if m.cfg.MaxPackTemplates > 0 && total > m.cfg.MaxPackTemplates {
		pv.Warnings = append(pv.Warnings,
			fmt.Sprintf("pack has %d templates, more than the recommended %d", total, m.cfg.MaxPackTemplates))
	}

	if total > 0 {
		keywords := 0
		for _, kw := range doc.Keywords() {
			keywords += len(kw)
		}
		pv.MeanKeywords = float64(keywords) / float64(total)
		if pv.MeanKeywords < m.cfg.MinMeanKeywords {
			pv.Warnings = append(pv.Warnings,
				fmt.Sprintf("templates average %.1f keywords, fewer than %.0f; suggestions may match poorly", pv.MeanKeywords, m.cfg.MinMeanKeywords))
		}
	}

	m.logger.Debug("import previewed", "new", pv.NewTemplates, "duplicates", pv.DuplicateTemplates, "warnings", len(pv.Warnings))
	return pv, nil
}
