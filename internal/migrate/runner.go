// ABOUTME: Startup migration runner: detect, load, migrate, write back, then mark
// ABOUTME: The schema marker is written last so an interrupted run restarts from scratch

package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/store"
)

// Report summarises one Run.
type Report struct {
	From              Generation
	To                Generation
	TemplatesWritten  int
	CategoriesWritten int
	VariantsSplit     int
}

// Migrated reports whether any step ran.
func (r *Report) Migrated() bool {
	return r.From != r.To
}

// Runner drives a store to the target generation.
type Runner struct {
	store    store.Store
	repo     *library.Repository
	detector *Detector
	defaults library.Settings
	logger   *slog.Logger
}

// NewRunner creates a Runner. defaults seeds settings fields that a store lacks.
func NewRunner(s store.Store, defaults library.Settings, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    s,
		repo:     library.NewRepository(s, logger),
		detector: NewDetector(s, logger),
		defaults: defaults,
		logger:   logger.With("component", "migrate"),
	}
}

// Run migrates the store to Target. On error the marker is left untouched.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	from := r.detector.Detect(ctx)
	report := &Report{From: from, To: from}

	if from > Target {
		return report, fmt.Errorf("store generation %d is newer than supported generation %d", from, Target)
	}

	if from == Target {
		_, hasMarker, err := r.repo.SchemaVersion(ctx)
		if err != nil {
			return report, err
		}
		if !hasMarker {
			if err := r.repo.SetSchemaVersion(ctx, int(Target)); err != nil {
				return report, err
			}
			r.logger.Info("recorded schema marker for current store", "generation", Target)
		}
		return report, nil
	}

	r.logger.Info("migrating store", "from", from, "to", Target)

	state, variants, err := r.load(ctx, from)
	if err != nil {
		return report, fmt.Errorf("loading generation %d state: %w", from, err)
	}
	report.VariantsSplit = variants

	v2, err := Migrate(state, r.defaults)
	if err != nil {
		return report, err
	}

	if err := r.write(ctx, v2, report); err != nil {
		return report, fmt.Errorf("writing migrated state: %w", err)
	}

	if err := r.repo.SetSchemaVersion(ctx, int(Target)); err != nil {
		return report, err
	}
	report.To = Target

	r.logger.Info("store migrated",
		"from", report.From,
		"to", report.To,
		"templates", report.TemplatesWritten,
		"categories", report.CategoriesWritten,
		"variants_split", report.VariantsSplit,
	)
	return report, nil
}

// Load reads the store as the given generation.
func (r *Runner) Load(ctx context.Context, gen Generation) (State, error) {
	state, _, err := r.load(ctx, gen)
	return state, err
}

// load also reports how many variants the stored templates carry.
func (r *Runner) load(ctx context.Context, gen Generation) (State, int, error) {
	templates, err := r.loadLegacyTemplates(ctx)
	if err != nil {
		return nil, 0, err
	}
	categories, err := r.repo.ListCategories(ctx)
	if err != nil {
		return nil, 0, err
	}
	cats := make([]library.Category, len(categories))
	for i, c := range categories {
		cats[i] = *c
	}
	variants := countVariants(templates)

	switch gen {
	case GenFresh:
		return &V0{
			Settings:   r.loadSettingsV1(ctx),
			Templates:  templates,
			Categories: cats,
		}, variants, nil

	case GenLegacy:
		v0 := &V0{Settings: r.loadSettingsV1(ctx), Templates: templates, Categories: cats}
		if variants > 0 {
			// A legacy store should not hold variants; split them rather than drop them.
			r.logger.Warn("generation 1 store still holds template variants, splitting them", "variants", variants)
			return UpgradeV0(v0), variants, nil
		}
		plain := make([]library.Template, len(templates))
		for i, lt := range templates {
			plain[i] = lt.Template
		}
		return &V1{Settings: v0.Settings, Templates: plain, Categories: cats}, 0, nil

	case GenCurrent:
		v2, err := r.loadV2(ctx, templates, cats)
		return v2, 0, err
	}
	return nil, 0, fmt.Errorf("unknown generation %d", gen)
}

func (r *Runner) loadV2(ctx context.Context, templates []LegacyTemplate, cats []library.Category) (*V2, error) {
	settings, err := r.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := r.repo.ListKeywordStats(ctx)
	if err != nil {
		return nil, err
	}
	packs, err := r.repo.ListAdPacks(ctx)
	if err != nil {
		return nil, err
	}

	v2 := &V2{
		Settings:     *settings,
		Templates:    make([]library.Template, len(templates)),
		Categories:   cats,
		KeywordStats: make([]library.KeywordStats, len(stats)),
		AdPacks:      make([]library.AdPackMeta, len(packs)),
	}
	for i, lt := range templates {
		v2.Templates[i] = lt.Template
	}
	for i, ks := range stats {
		v2.KeywordStats[i] = *ks
	}
	for i, p := range packs {
		v2.AdPacks[i] = *p
	}
	return v2, nil
}

func (r *Runner) loadLegacyTemplates(ctx context.Context) ([]LegacyTemplate, error) {
	recs, err := r.store.ListAll(ctx, store.CollectionTemplates)
	if err != nil {
		return nil, &library.StorageError{Op: "listing templates", Err: err}
	}
	out := make([]LegacyTemplate, 0, len(recs))
	for _, rec := range recs {
		var lt LegacyTemplate
		if err := json.Unmarshal(rec.Data, &lt); err != nil {
			return nil, fmt.Errorf("decoding template %s: %w", rec.Key, err)
		}
		out = append(out, lt)
	}
	return out, nil
}

// loadSettingsV1 returns the stored settings in their pre-generation-2 shape,
// with any other stored keys in Later, or nil when there are none.
func (r *Runner) loadSettingsV1(ctx context.Context) *SettingsV1 {
	rec, err := r.store.Get(ctx, store.CollectionMeta, library.KeySettings)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("reading legacy settings failed", "error", err)
		}
		return nil
	}
	var s SettingsV1
	if err := json.Unmarshal(rec.Data, &s); err != nil {
		r.logger.Warn("decoding legacy settings failed", "error", err)
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Data, &raw); err == nil {
		for _, field := range gen1SettingsFields {
			delete(raw, field)
		}
		if len(raw) > 0 {
			r.logger.Warn("legacy settings carry newer fields, keeping them", "fields", len(raw))
			s.Later = raw
		}
	}
	return &s
}

func (r *Runner) write(ctx context.Context, v2 *V2, report *Report) error {
	for i := range v2.Categories {
		if err := r.repo.PutCategory(ctx, &v2.Categories[i]); err != nil {
			return err
		}
		report.CategoriesWritten++
	}
	for i := range v2.Templates {
		if err := r.repo.PutTemplate(ctx, &v2.Templates[i]); err != nil {
			return err
		}
		report.TemplatesWritten++
	}
	for i := range v2.KeywordStats {
		if err := r.repo.PutKeywordStats(ctx, &v2.KeywordStats[i]); err != nil {
			return err
		}
	}
	for i := range v2.AdPacks {
		if err := r.repo.PutAdPack(ctx, &v2.AdPacks[i]); err != nil {
			return err
		}
	}
	return r.repo.PutSettings(ctx, &v2.Settings)
}

func countVariants(templates []LegacyTemplate) int {
	n := 0
	for _, t := range templates {
		n += len(t.Variants)
	}
	return n
}
