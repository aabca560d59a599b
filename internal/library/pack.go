// ABOUTME: Exchange document types for category packs and multi-category ad packs
// ABOUTME: Packs are value objects consumed by import and produced by export

package library

import "time"

// PackKind identifies the shape of an exchange document.
type PackKind string

// Pack kinds
const (
	KindCategoryPack PackKind = "category"
	KindAdPack       PackKind = "adpack"
)

// CategoryPack bundles a single category and its templates.
type CategoryPack struct {
	Name      string         `json:"name" validate:"required,max=100"`
	Version   string         `json:"version" validate:"required,max=20"`
	Category  PackCategory   `json:"category"`
	Templates []PackTemplate `json:"templates" validate:"dive"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PackCategory is the category header of a category pack.
type PackCategory struct {
	ID          string `json:"id" validate:"required,max=100"`
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

// PackTemplate is a template as it appears in a category pack.
// The pointer fields are internal bookkeeping that exports may strip.
type PackTemplate struct {
	ID         string     `json:"id" validate:"required,max=100"`
	Label      string     `json:"label" validate:"required,max=100"`
	Category   string     `json:"category" validate:"required,max=100"`
	Keywords   []string   `json:"keywords" validate:"max=20,dive,max=50"`
	Body       string     `json:"body" validate:"required,max=1000"`
	IsPrebuilt bool       `json:"isPrebuilt"`
	UsageCount *int       `json:"usageCount,omitempty" validate:"omitempty,gte=0"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// AdPack bundles several categories for a niche.
type AdPack struct {
	ID          string           `json:"id" validate:"required,max=100"`
	Name        string           `json:"name" validate:"required,max=100"`
	Niche       string           `json:"niche" validate:"required,max=50"`
	Version     string           `json:"version" validate:"required,semver"`
	Author      string           `json:"author" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=500"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
	Categories  []AdPackCategory `json:"categories" validate:"required,min=1,dive"`
	Metadata    AdPackMetadata   `json:"metadata"`
}

// AdPackCategory is one category inside an ad pack.
type AdPackCategory struct {
	ID          string           `json:"id" validate:"required,max=100"`
	Name        string           `json:"name" validate:"required,max=50"`
	Description string           `json:"description" validate:"max=200"`
	Templates   []AdPackTemplate `json:"templates" validate:"dive"`
}

// AdPackTemplate is a template inside an ad pack category.
type AdPackTemplate struct {
	ID       string   `json:"id" validate:"required,max=100"`
	Title    string   `json:"title" validate:"required,max=100"`
	Content  string   `json:"content" validate:"required,max=1000"`
	Keywords []string `json:"keywords" validate:"max=20,dive,max=50"`
}

// AdPackMetadata carries self-reported counts. Import never trusts them.
type AdPackMetadata struct {
	TotalTemplates  int `json:"totalTemplates" validate:"gte=0"`
	TotalCategories int `json:"totalCategories" validate:"gte=0"`
	DownloadCount   int `json:"downloadCount" validate:"gte=0"`
}

// Document is a parsed exchange document: exactly one of CategoryPack or AdPack is set.
type Document struct {
	Kind         PackKind
	CategoryPack *CategoryPack
	AdPack       *AdPack
}

// TemplateCount returns the number of templates carried by the document.
func (d *Document) TemplateCount() int {
	switch d.Kind {
	case KindCategoryPack:
		return len(d.CategoryPack.Templates)
	case KindAdPack:
		n := 0
		for _, c := range d.AdPack.Categories {
			n += len(c.Templates)
		}
		return n
	}
	return 0
}

// Keywords returns the keyword lists of every template in the document.
func (d *Document) Keywords() [][]string {
	var out [][]string
	switch d.Kind {
	case KindCategoryPack:
		for _, t := range d.CategoryPack.Templates {
			out = append(out, t.Keywords)
		}
	case KindAdPack:
		for _, c := range d.AdPack.Categories {
			for _, t := range c.Templates {
				out = append(out, t.Keywords)
			}
		}
	}
	return out
}
