// ABOUTME: Import planning: purge set, category resolution and template resolution
// ABOUTME: Reads the store only; pre-built conflicts are collected before any write

package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/validate"
)

// TemplateOp is the planned action for one incoming template.
type TemplateOp struct {
	Action   Action
	SourceID string           // id in the pack
	Template library.Template // what will be written; zero for skips
	Previous string           // category the template was filed under before an update
	Reason   string           // why a template is skipped
}

// CategoryOp is the planned action for one incoming category. Templates are
// written under Category.ID, which is the existing id when one is reused.
type CategoryOp struct {
	Action    Action // ActionCreate or ActionSkip (reuse)
	SourceID  string
	Category  library.Category
	Prebuilt  bool // target is an existing pre-built category
	Templates []TemplateOp
}

// Purge lists the user content a replace import deletes first.
type Purge struct {
	TemplateIDs []string
	CategoryIDs []string
}

// Plan is the full set of changes an import would make.
type Plan struct {
	Kind       library.PackKind
	Options    Options
	Purge      Purge
	Categories []*CategoryOp
	Conflicts  []*library.ConflictError
	Errors     []string // per-template validation failures
	Warnings   []string
	AdPack     *library.AdPackMeta // set for ad pack imports
}

// Conflict returns the pre-built conflicts as a single error, or nil.
func (p *Plan) Conflict() error {
	if len(p.Conflicts) == 0 {
		return nil
	}
	errs := make([]error, len(p.Conflicts))
	for i, c := range p.Conflicts {
		errs[i] = c
	}
	return errors.Join(errs...)
}

// Merger plans and applies pack imports.
type Merger struct {
	repo      *library.Repository
	validator *validate.Validator
	cfg       Config
	logger    *slog.Logger
	newID     func() string
}

// NewMerger creates a Merger.
func NewMerger(repo *library.Repository, cfg Config, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Merger{
		repo:      repo,
		validator: validate.New(),
		cfg:       cfg,
		logger:    logger.With("component", "importer"),
		newID:     uuid.NewString,
	}
}

// snapshot is the store content an import resolves against.
type snapshot struct {
	categories map[string]*library.Category // by id
	byName     map[string]*library.Category // by lowercased name
	templates  map[string]*library.Template // by id
	byLabel    map[string]map[string]*library.Template
}

func newSnapshot() *snapshot {
	return &snapshot{
		categories: make(map[string]*library.Category),
		byName:     make(map[string]*library.Category),
		templates:  make(map[string]*library.Template),
		byLabel:    make(map[string]map[string]*library.Template),
	}
}

func (s *snapshot) addCategory(c *library.Category) {
	s.categories[c.ID] = c
	s.byName[fold(c.Name)] = c
}

func (s *snapshot) addTemplate(t *library.Template) {
	s.templates[t.ID] = t
	labels, ok := s.byLabel[t.Category]
	if !ok {
		labels = make(map[string]*library.Template)
		s.byLabel[t.Category] = labels
	}
	labels[fold(t.Label)] = t
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Plan works out what importing doc would change. It never writes.
func (m *Merger) Plan(ctx context.Context, doc *library.Document, opts Options) (*Plan, error) {
	if doc == nil {
		return nil, &library.ValidationError{Entity: "pack", Reasons: []string{"pack is required"}}
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyMerge
	}
	if _, err := ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}

	categories, err := m.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := m.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Kind: doc.Kind, Options: opts}
	snap := newSnapshot()

	for _, c := range categories {
		if opts.Strategy == StrategyReplace && !c.IsPrebuilt {
			plan.Purge.CategoryIDs = append(plan.Purge.CategoryIDs, c.ID)
			continue
		}
		snap.addCategory(c)
	}
	for _, t := range templates {
		if opts.Strategy == StrategyReplace && !t.IsPrebuilt {
			plan.Purge.TemplateIDs = append(plan.Purge.TemplateIDs, t.ID)
			continue
		}
		snap.addTemplate(t)
		if _, ok := snap.categories[t.Category]; !ok && t.Category != "" {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("template %s references missing category %s", t.ID, t.Category))
		}
	}

	now := m.repo.Now()
	switch doc.Kind {
	case library.KindCategoryPack:
		if doc.CategoryPack == nil {
			return nil, &library.ValidationError{Entity: "category pack", Reasons: []string{"category pack is required"}}
		}
		m.planCategoryPack(plan, snap, validate.SanitizeCategoryPack(*doc.CategoryPack), now)
	case library.KindAdPack:
		if doc.AdPack == nil {
			return nil, &library.ValidationError{Entity: "ad pack", Reasons: []string{"ad pack is required"}}
		}
		m.planAdPack(plan, snap, validate.SanitizeAdPack(*doc.AdPack), now)
	default:
		return nil, fmt.Errorf("unknown pack kind %q", doc.Kind)
	}

	return plan, nil
}

func (m *Merger) planCategoryPack(plan *Plan, snap *snapshot, p library.CategoryPack, now time.Time) {
	op := m.resolveCategory(plan, snap.categories[p.Category.ID], p.Category.ID, p.Category.ID,
		p.Category.Name, p.Category.Description, now)

	seen := make(map[string]bool)
	for _, pt := range p.Templates {
		if seen[pt.ID] {
			op.Templates = append(op.Templates, TemplateOp{Action: ActionSkip, SourceID: pt.ID, Reason: "duplicate id in pack"})
			continue
		}
		seen[pt.ID] = true

		incoming := library.Template{
			ID:       pt.ID,
			Label:    pt.Label,
			Category: op.Category.ID,
			Keywords: pt.Keywords,
			Body:     pt.Body,
		}
		if pt.UsageCount != nil {
			incoming.UsageCount = *pt.UsageCount
		}
		if pt.CreatedAt != nil {
			incoming.CreatedAt = pt.CreatedAt.UTC()
		}
		m.resolveTemplate(plan, op, snap.templates[pt.ID], incoming, pt.ID, now)
	}
	plan.Categories = append(plan.Categories, op)
}

func (m *Merger) planAdPack(plan *Plan, snap *snapshot, p library.AdPack, now time.Time) {
	meta := &library.AdPackMeta{
		ID:         p.ID,
		Name:       p.Name,
		Version:    p.Version,
		ImportedAt: now,
	}

	for _, ac := range p.Categories {
		match := snap.byName[fold(ac.Name)]
		newID := ""
		if match == nil {
			newID = m.newID()
		}
		op := m.resolveCategory(plan, match, ac.ID, newID, ac.Name, ac.Description, now)
		meta.CategoryIDs = append(meta.CategoryIDs, op.Category.ID)

		existing := snap.byLabel[op.Category.ID]
		seen := make(map[string]bool)
		for _, at := range ac.Templates {
			label := fold(at.Title)
			if seen[label] {
				op.Templates = append(op.Templates, TemplateOp{Action: ActionSkip, SourceID: at.ID, Reason: "duplicate title in pack"})
				continue
			}
			seen[label] = true

			match := existing[label]
			id := ""
			if match == nil {
				id = m.newID()
			}
			incoming := library.Template{
				ID:       id,
				Label:    at.Title,
				Category: op.Category.ID,
				Keywords: at.Keywords,
				Body:     at.Content,
			}
			m.resolveTemplate(plan, op, match, incoming, at.ID, now)
		}
		plan.Categories = append(plan.Categories, op)
	}
	plan.AdPack = meta
}

// resolveCategory reuses an existing category or plans a new one with newID.
func (m *Merger) resolveCategory(plan *Plan, existing *library.Category, sourceID, newID, name, description string, now time.Time) *CategoryOp {
	if existing != nil {
		op := &CategoryOp{Action: ActionSkip, SourceID: sourceID, Category: *existing, Prebuilt: existing.IsPrebuilt}
		if existing.IsPrebuilt && !plan.Options.OverridePrebuilt {
			plan.Conflicts = append(plan.Conflicts, &library.ConflictError{CategoryID: existing.ID, Name: existing.Name})
		}
		return op
	}
	return &CategoryOp{
		Action:   ActionCreate,
		SourceID: sourceID,
		Category: library.Category{
			ID:          newID,
			Name:        name,
			Description: description,
			CreatedAt:   now,
		},
	}
}

// resolveTemplate applies the duplicate policy to one incoming template.
func (m *Merger) resolveTemplate(plan *Plan, op *CategoryOp, existing *library.Template, incoming library.Template, sourceID string, now time.Time) {
	if existing == nil {
		if incoming.CreatedAt.IsZero() {
			incoming.CreatedAt = now
		}
		incoming.UpdatedAt = now
		op.Templates = append(op.Templates, m.checked(plan, TemplateOp{Action: ActionCreate, SourceID: sourceID, Template: incoming}))
		return
	}

	switch {
	case !plan.Options.OverwriteDuplicates:
		op.Templates = append(op.Templates, TemplateOp{Action: ActionSkip, SourceID: sourceID, Reason: "already exists"})
	case existing.IsPrebuilt && !plan.Options.OverridePrebuilt:
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("template %s is pre-built and was not overwritten", existing.ID))
		op.Templates = append(op.Templates, TemplateOp{Action: ActionSkip, SourceID: sourceID, Reason: "pre-built"})
	default:
		updated := *existing
		updated.Label = incoming.Label
		updated.Category = incoming.Category
		updated.Keywords = incoming.Keywords
		updated.Body = incoming.Body
		updated.UpdatedAt = now
		op.Templates = append(op.Templates, m.checked(plan, TemplateOp{
			Action:   ActionUpdate,
			SourceID: sourceID,
			Template: updated,
			Previous: existing.Category,
		}))
	}
}

// checked turns a template that fails validation after sanitising into a
// skip and records why.
func (m *Merger) checked(plan *Plan, op TemplateOp) TemplateOp {
	res := m.validator.Template(&op.Template)
	if res.IsValid {
		return op
	}
	plan.Errors = append(plan.Errors, fmt.Sprintf("template %s: %s", op.SourceID, strings.Join(res.Errors, "; ")))
	return TemplateOp{Action: ActionSkip, SourceID: op.SourceID, Reason: reasonInvalid}
}

const reasonInvalid = "invalid"

// counter is a mutex-guarded tally shared by concurrent template writes.
type counter struct {
	mu       sync.Mutex
	imported int
	updated  int
	errs     []string
}

func (c *counter) ok(a Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == ActionUpdate {
		c.updated++
	} else {
		c.imported++
	}
}

func (c *counter) fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, msg)
}
