// ABOUTME: Generation-typed store states and the pure upgrade steps between them
// ABOUTME: V0 (variant-bearing templates) -> V1 (variant-free) -> V2 (current settings and collections)

package migrate

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/2389/templatekit/internal/library"
)

// Generation identifies a schema version of the persisted store.
type Generation int

// Known generations
const (
	GenFresh   Generation = 0
	GenLegacy  Generation = 1
	GenCurrent Generation = 2
)

// Target is the generation every store is migrated to.
const Target = GenCurrent

// State is one of *V0, *V1 or *V2.
type State interface {
	Generation() Generation
}

// LegacyTemplate is a template record that may still carry variant strings.
type LegacyTemplate struct {
	library.Template
	Variants []string `json:"variants,omitempty"`
}

// SettingsV1 is the settings shape written before generation 2. Later holds
// any other keys found in the stored record, such as generation 2 fields on a
// store whose marker could not be read.
type SettingsV1 struct {
	Theme           string `json:"theme"`
	DefaultCategory string `json:"defaultCategory"`
	AutoSuggest     bool   `json:"autoSuggest"`
	Hotkey          string `json:"hotkey"`

	Later map[string]json.RawMessage `json:"-"`
}

// Settings keys the generation 1 shape owns.
var gen1SettingsFields = []string{"theme", "defaultCategory", "autoSuggest", "hotkey"}

// V0 is a fresh store, or one whose templates still carry variants.
// Settings is nil on a genuinely fresh install.
type V0 struct {
	Settings   *SettingsV1
	Templates  []LegacyTemplate
	Categories []library.Category
}

// V1 is a legacy store with variant-free templates.
type V1 struct {
	Settings   *SettingsV1
	Templates  []library.Template
	Categories []library.Category
}

// V2 is the current store shape.
type V2 struct {
	Settings     library.Settings
	Templates    []library.Template
	Categories   []library.Category
	KeywordStats []library.KeywordStats
	AdPacks      []library.AdPackMeta
}

func (*V0) Generation() Generation { return GenFresh }
func (*V1) Generation() Generation { return GenLegacy }
func (*V2) Generation() Generation { return GenCurrent }

// Migrate applies every step after the state's generation, in order,
// and returns the current-generation state. A *V2 is returned unchanged.
func Migrate(s State, defaults library.Settings) (*V2, error) {
	switch st := s.(type) {
	case *V0:
		return UpgradeV1(UpgradeV0(st), defaults), nil
	case *V1:
		return UpgradeV1(st, defaults), nil
	case *V2:
		return st, nil
	case nil:
		return nil, fmt.Errorf("no state to migrate")
	}
	return nil, fmt.Errorf("unsupported state generation %d", s.Generation())
}

// UpgradeV0 splits every variant into its own template. The parent keeps its
// variant-free fields; variant i (1-based) becomes {parentId}_variant_{i}.
// Records already produced by an earlier run are replaced, so the step is
// safe to repeat.
func UpgradeV0(v0 *V0) *V1 {
	var templates []library.Template
	pos := make(map[string]int)

	add := func(t library.Template) {
		if i, ok := pos[t.ID]; ok {
			templates[i] = t
			return
		}
		pos[t.ID] = len(templates)
		templates = append(templates, t)
	}

	for _, lt := range v0.Templates {
		for _, t := range SplitVariants(lt) {
			add(t)
		}
	}

	categories := slices.Clone(v0.Categories)
	recount(categories, templates)

	return &V1{
		Settings:   cloneSettingsV1(v0.Settings),
		Templates:  templates,
		Categories: categories,
	}
}

// SplitVariants returns the parent template followed by one sibling per variant.
func SplitVariants(lt LegacyTemplate) []library.Template {
	parent := lt.Template
	parent.Keywords = slices.Clone(lt.Keywords)

	out := make([]library.Template, 0, 1+len(lt.Variants))
	out = append(out, parent)
	for i, body := range lt.Variants {
		sib := parent
		sib.Keywords = slices.Clone(parent.Keywords)
		sib.ID = fmt.Sprintf("%s_variant_%d", parent.ID, i+1)
		sib.Label = fmt.Sprintf("%s (Variant %d)", parent.Label, i+1)
		sib.Body = body
		sib.UsageCount = 0
		out = append(out, sib)
	}
	return out
}

// UpgradeV1 fills in the generation 2 settings fields from defaults, keeping
// every existing value, and starts the new collections empty. Stored keys
// beyond the generation 1 shape are kept over the defaults.
func UpgradeV1(v1 *V1, defaults library.Settings) *V2 {
	settings := defaults
	if v1.Settings != nil {
		applyLater(&settings, v1.Settings.Later)
		settings.Theme = v1.Settings.Theme
		settings.DefaultCategory = v1.Settings.DefaultCategory
		settings.AutoSuggest = v1.Settings.AutoSuggest
		settings.Hotkey = v1.Settings.Hotkey
	}

	templates := make([]library.Template, len(v1.Templates))
	for i, t := range v1.Templates {
		t.Keywords = slices.Clone(t.Keywords)
		templates[i] = t
	}

	return &V2{
		Settings:     settings,
		Templates:    templates,
		Categories:   slices.Clone(v1.Categories),
		KeywordStats: []library.KeywordStats{},
		AdPacks:      []library.AdPackMeta{},
	}
}

func recount(categories []library.Category, templates []library.Template) {
	counts := make(map[string]int)
	for _, t := range templates {
		counts[t.Category]++
	}
	for i := range categories {
		categories[i].TemplateCount = counts[categories[i].ID]
	}
}

// applyLater decodes stored keys onto s. A value of the wrong type is skipped
// and the remaining keys still apply.
func applyLater(s *library.Settings, later map[string]json.RawMessage) {
	if len(later) == 0 {
		return
	}
	data, err := json.Marshal(later)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, s)
}

func cloneSettingsV1(s *SettingsV1) *SettingsV1 {
	if s == nil {
		return nil
	}
	c := *s
	c.Later = maps.Clone(s.Later)
	return &c
}
