// ABOUTME: Idempotent normalisation of entity string fields
// ABOUTME: Trims, HTML-escapes display text and cleans keyword lists without touching the input

package validate

import (
	"html"
	"slices"
	"strings"

	"github.com/2389/templatekit/internal/library"
)

// Text trims s and HTML-escapes it. Existing entities are decoded first so
// that Text(Text(s)) == Text(s).
func Text(s string) string {
	return html.EscapeString(strings.TrimSpace(html.UnescapeString(s)))
}

// Keywords lowercases and escapes each keyword, dropping blanks and duplicates.
func Keywords(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(Text(k))
		if k == "" || slices.Contains(out, k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// SanitizeTemplate returns a normalised copy of t.
func SanitizeTemplate(t library.Template) library.Template {
	t.ID = strings.TrimSpace(t.ID)
	t.Label = Text(t.Label)
	t.Category = strings.TrimSpace(t.Category)
	t.Keywords = Keywords(t.Keywords)
	t.Body = Text(t.Body)
	return t
}

// SanitizeCategory returns a normalised copy of c.
func SanitizeCategory(c library.Category) library.Category {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = Text(c.Name)
	c.Description = Text(c.Description)
	return c
}

// SanitizeSettings returns a normalised copy of s. URL patterns and secrets
// are trimmed only.
func SanitizeSettings(s library.Settings) library.Settings {
	s.Theme = strings.ToLower(strings.TrimSpace(s.Theme))
	s.DefaultCategory = strings.TrimSpace(s.DefaultCategory)
	s.Hotkey = strings.TrimSpace(s.Hotkey)
	s.BusinessDescription = Text(s.BusinessDescription)
	s.AIProvider = strings.ToLower(strings.TrimSpace(s.AIProvider))
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.AffiliateLinkStructure = strings.TrimSpace(s.AffiliateLinkStructure)
	return s
}

// SanitizeLicense returns a normalised copy of l.
func SanitizeLicense(l library.License) library.License {
	l.Key = strings.ToUpper(strings.TrimSpace(l.Key))
	l.Tier = strings.ToLower(strings.TrimSpace(l.Tier))
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	return l
}

// SanitizeKeywordStats returns a normalised copy of ks.
func SanitizeKeywordStats(ks library.KeywordStats) library.KeywordStats {
	ks.Keyword = strings.ToLower(Text(ks.Keyword))
	return ks
}

// SanitizeCategoryPack returns a normalised deep copy of p.
func SanitizeCategoryPack(p library.CategoryPack) library.CategoryPack {
	p.Name = Text(p.Name)
	p.Version = strings.TrimSpace(p.Version)
	p.Category.ID = strings.TrimSpace(p.Category.ID)
	p.Category.Name = Text(p.Category.Name)
	p.Category.Description = Text(p.Category.Description)

	templates := make([]library.PackTemplate, len(p.Templates))
	for i, t := range p.Templates {
		t.ID = strings.TrimSpace(t.ID)
		t.Label = Text(t.Label)
		t.Category = strings.TrimSpace(t.Category)
		t.Keywords = Keywords(t.Keywords)
		t.Body = Text(t.Body)
		templates[i] = t
	}
	if p.Templates != nil {
		p.Templates = templates
	}
	return p
}

// SanitizeAdPack returns a normalised deep copy of p.
func SanitizeAdPack(p library.AdPack) library.AdPack {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = Text(p.Name)
	p.Niche = Text(p.Niche)
	p.Version = strings.TrimSpace(p.Version)
	p.Author = Text(p.Author)
	p.Description = Text(p.Description)

	if p.Categories == nil {
		return p
	}
	categories := make([]library.AdPackCategory, len(p.Categories))
	for i, c := range p.Categories {
		c.ID = strings.TrimSpace(c.ID)
		c.Name = Text(c.Name)
		c.Description = Text(c.Description)
		if c.Templates != nil {
			templates := make([]library.AdPackTemplate, len(c.Templates))
			for j, t := range c.Templates {
				t.ID = strings.TrimSpace(t.ID)
				t.Title = Text(t.Title)
				t.Content = Text(t.Content)
				t.Keywords = Keywords(t.Keywords)
				templates[j] = t
			}
			c.Templates = templates
		}
		categories[i] = c
	}
	p.Categories = categories
	return p
}
