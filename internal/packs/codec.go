// ABOUTME: Exchange document codec: kind detection, decoding, validation and encoding
// ABOUTME: Serialize functions project stored entities into category packs and ad packs

package packs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/validate"
)

// ExportedBy is stamped into category pack metadata.
const ExportedBy = "templatekit"

// DefaultVersion is used when a caller does not name a pack version.
const DefaultVersion = "1.0.0"

var sharedValidator = sync.OnceValue(validate.New)

// Parse decodes an exchange document and validates all of it. Malformed
// JSON yields a *library.ParseError; a structurally invalid document yields
// a *library.ValidationError listing every problem.
func Parse(data []byte) (*library.Document, error) {
	kind, err := detectKind(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case library.KindAdPack:
		var p library.AdPack
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if err := sharedValidator().AdPack(&p).Err("ad pack"); err != nil {
			return nil, err
		}
		return &library.Document{Kind: kind, AdPack: &p}, nil

	default:
		var p library.CategoryPack
		if err := decode(data, &p); err != nil {
			return nil, err
		}
		if err := sharedValidator().CategoryPack(&p).Err("category pack"); err != nil {
			return nil, err
		}
		return &library.Document{Kind: kind, CategoryPack: &p}, nil
	}
}

// detectKind looks at the top-level keys: a categories array means an
// ad pack, a category object means a category pack.
func detectKind(data []byte) (library.PackKind, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return "", &library.ParseError{Err: err}
	}
	if raw, ok := top["categories"]; ok && isJSONArray(raw) {
		return library.KindAdPack, nil
	}
	if raw, ok := top["category"]; ok && isJSONObject(raw) {
		return library.KindCategoryPack, nil
	}
	return "", &library.ParseError{Err: errors.New("document is neither a category pack nor an ad pack")}
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return &library.ParseError{Err: err}
	}
	if dec.More() {
		return &library.ParseError{Err: errors.New("unexpected data after document")}
	}
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// Encode renders a document as indented JSON.
func Encode(doc *library.Document) ([]byte, error) {
	var v any
	switch {
	case doc.Kind == library.KindCategoryPack && doc.CategoryPack != nil:
		v = doc.CategoryPack
	case doc.Kind == library.KindAdPack && doc.AdPack != nil:
		v = doc.AdPack
	default:
		return nil, fmt.Errorf("%q document has no content", doc.Kind)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s pack: %w", doc.Kind, err)
	}
	return append(data, '\n'), nil
}

// SerializeOptions controls projection of stored entities into a pack.
type SerializeOptions struct {
	Name    string // pack name, defaults to "<category name> Pack"
	Version string // defaults to DefaultVersion

	// RemoveInternalFields drops usage counters and timestamps.
	RemoveInternalFields bool

	ExportedAt time.Time
}

// SerializeCategory builds a category pack from a category and its templates.
// Every template is stamped with the pack's category id.
func SerializeCategory(cat *library.Category, templates []*library.Template, opts SerializeOptions) *library.CategoryPack {
	name := opts.Name
	if name == "" {
		name = cat.Name + " Pack"
	}
	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}

	out := make([]library.PackTemplate, 0, len(templates))
	for _, t := range templates {
		pt := library.PackTemplate{
			ID:         t.ID,
			Label:      t.Label,
			Category:   cat.ID,
			Keywords:   append([]string(nil), t.Keywords...),
			Body:       t.Body,
			IsPrebuilt: t.IsPrebuilt,
		}
		if !opts.RemoveInternalFields {
			usage := t.UsageCount
			created, updated := t.CreatedAt, t.UpdatedAt
			pt.UsageCount = &usage
			pt.CreatedAt = &created
			pt.UpdatedAt = &updated
		}
		out = append(out, pt)
	}

	return &library.CategoryPack{
		Name:    name,
		Version: version,
		Category: library.PackCategory{
			ID:          cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
		},
		Templates: out,
		Metadata: map[string]any{
			"exportedAt":    opts.ExportedAt.UTC().Format(time.RFC3339),
			"templateCount": len(out),
			"exportedBy":    ExportedBy,
		},
	}
}

// AdPackHeader names an ad pack being serialized.
type AdPackHeader struct {
	ID          string
	Name        string
	Niche       string
	Version     string
	Author      string
	Description string
}

// CategoryTemplates pairs a category with the templates to export for it.
type CategoryTemplates struct {
	Category  *library.Category
	Templates []*library.Template
}

// SerializeAdPack builds an ad pack from several categories. Template labels
// become titles and bodies become content.
func SerializeAdPack(h AdPackHeader, groups []CategoryTemplates, exportedAt time.Time) *library.AdPack {
	version := h.Version
	if version == "" {
		version = DefaultVersion
	}
	created := exportedAt.UTC()

	p := &library.AdPack{
		ID:          h.ID,
		Name:        h.Name,
		Niche:       h.Niche,
		Version:     version,
		Author:      h.Author,
		Description: h.Description,
		CreatedAt:   &created,
		Categories:  make([]library.AdPackCategory, 0, len(groups)),
	}

	total := 0
	for _, g := range groups {
		ac := library.AdPackCategory{
			ID:          g.Category.ID,
			Name:        g.Category.Name,
			Description: g.Category.Description,
			Templates:   make([]library.AdPackTemplate, 0, len(g.Templates)),
		}
		for _, t := range g.Templates {
			ac.Templates = append(ac.Templates, library.AdPackTemplate{
				ID:       t.ID,
				Title:    t.Label,
				Content:  t.Body,
				Keywords: append([]string(nil), t.Keywords...),
			})
		}
		total += len(ac.Templates)
		p.Categories = append(p.Categories, ac)
	}

	p.Metadata = library.AdPackMetadata{
		TotalTemplates:  total,
		TotalCategories: len(p.Categories),
	}
	return p
}
