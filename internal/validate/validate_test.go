// ABOUTME: Tests for entity validation and sanitisation
// ABOUTME: Covers per-field failures, cross-field rules and sanitize idempotence

package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/templatekit/internal/library"
)

func validTemplate() *library.Template {
	return &library.Template{
		ID:       "t1",
		Label:    "Greeting",
		Category: "c1",
		Keywords: []string{"hello", "welcome"},
		Body:     "Hi {name}, thanks for reaching out!",
	}
}

func validCategory() *library.Category {
	return &library.Category{ID: "c1", Name: "Sales", Description: "Sales replies"}
}

func containsMessage(t *testing.T, errs []string, substr string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return
		}
	}
	t.Errorf("expected an error containing %q, got %v", substr, errs)
}

func TestTemplate_Valid(t *testing.T) {
	res := New().Template(validTemplate())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.NoError(t, res.Err("template"))
}

func TestTemplate_InvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*library.Template)
		want   string
	}{
		{"missing id", func(t *library.Template) { t.ID = "" }, "id is required"},
		{"missing label", func(t *library.Template) { t.Label = "" }, "label is required"},
		{"long label", func(t *library.Template) { t.Label = strings.Repeat("a", 101) }, "label must be at most 100 characters"},
		{"missing body", func(t *library.Template) { t.Body = "" }, "body is required"},
		{"long body", func(t *library.Template) { t.Body = strings.Repeat("b", 1001) }, "body must be at most 1000 characters"},
		{"too many keywords", func(t *library.Template) { t.Keywords = make([]string, 21) }, "keywords must have at most 20 items"},
		{"negative usage", func(t *library.Template) { t.UsageCount = -1 }, "usageCount must be greater than or equal to 0"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(tmpl)
			res := v.Template(tmpl)
			require.False(t, res.IsValid)
			require.NotEmpty(t, res.Errors)
			containsMessage(t, res.Errors, tt.want)
		})
	}
}

func TestTemplate_LengthCountsCharacters(t *testing.T) {
	tmpl := validTemplate()
	tmpl.Label = strings.Repeat("é", 100)
	assert.True(t, New().Template(tmpl).IsValid)
}

func TestTemplate_Nil(t *testing.T) {
	res := New().Template(nil)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"template is required"}, res.Errors)
}

func TestCategory_InvalidFields(t *testing.T) {
	v := New()
	assert.True(t, v.Category(validCategory()).IsValid)

	c := validCategory()
	c.Name = ""
	containsMessage(t, v.Category(c).Errors, "name is required")

	c = validCategory()
	c.Description = strings.Repeat("d", 201)
	containsMessage(t, v.Category(c).Errors, "description must be at most 200 characters")

	c = validCategory()
	c.TemplateCount = -3
	containsMessage(t, v.Category(c).Errors, "templateCount must be greater than or equal to 0")
}

func TestValidationError(t *testing.T) {
	tmpl := validTemplate()
	tmpl.Label = ""
	err := New().Template(tmpl).Err("template")
	require.Error(t, err)
	assert.ErrorIs(t, err, library.ErrValidation)
	assert.Contains(t, err.Error(), "label is required")
}

func TestSettings(t *testing.T) {
	v := New()
	s := library.DefaultSettings()
	assert.True(t, v.Settings(&s).IsValid)

	s.AIProvider = "skynet"
	containsMessage(t, v.Settings(&s).Errors, "aiProvider must be one of [none, openai, anthropic, gemini]")

	s = library.DefaultSettings()
	s.AffiliateLinkStructure = "https://example.com/?ref=me"
	containsMessage(t, v.Settings(&s).Errors, "affiliateLinkStructure must contain the {url} placeholder")

	s.AffiliateLinkStructure = "https://go.example.com/?to={url}&ref=me"
	assert.True(t, v.Settings(&s).IsValid)
}

func TestLicense(t *testing.T) {
	v := New()
	activated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := activated.AddDate(1, 0, 0)
	before := activated.AddDate(0, 0, -1)

	l := &library.License{Key: "ABCD-1234-EFGH", Tier: library.TierPro, Email: "me@example.com", ActivatedAt: activated, ExpiresAt: &expires}
	assert.True(t, v.License(l).IsValid)

	bad := *l
	bad.Key = "ab--cd_12"
	containsMessage(t, v.License(&bad).Errors, "key may only contain letters, digits and single dashes")

	bad = *l
	bad.Email = "not-an-email"
	containsMessage(t, v.License(&bad).Errors, "email must be a valid email address")

	bad = *l
	bad.ExpiresAt = &before
	containsMessage(t, v.License(&bad).Errors, "expiresAt must be after activatedAt")

	bad = *l
	bad.Tier = library.TierLifetime
	containsMessage(t, v.License(&bad).Errors, "expiresAt must not be set for lifetime licenses")

	bad = *l
	bad.ActivatedAt = time.Time{}
	containsMessage(t, v.License(&bad).Errors, "activatedAt is required")
}

func TestKeywordStats_ChosenNotAboveMatches(t *testing.T) {
	v := New()
	ks := &library.KeywordStats{Keyword: "refund", Matches: 3, Chosen: 3}
	assert.True(t, v.KeywordStats(ks).IsValid)

	ks.Chosen = 4
	res := v.KeywordStats(ks)
	assert.False(t, res.IsValid)
	containsMessage(t, res.Errors, "chosen must be less than or equal to matches")
}

func TestCategoryPack_CategoryMismatch(t *testing.T) {
	p := &library.CategoryPack{
		Name:     "Sales pack",
		Version:  "1.0",
		Category: library.PackCategory{ID: "c1", Name: "Sales"},
		Templates: []library.PackTemplate{
			{ID: "t1", Label: "A", Category: "c1", Body: "a"},
			{ID: "t2", Label: "B", Category: "c2", Body: "b"},
		},
	}
	res := New().CategoryPack(p)
	require.False(t, res.IsValid)
	assert.Equal(t, []string{`templates[1].category must match pack category "c1"`}, res.Errors)
}

func TestCategoryPack_NestedErrors(t *testing.T) {
	p := &library.CategoryPack{
		Name:      "",
		Version:   "1.0",
		Category:  library.PackCategory{ID: "c1"},
		Templates: []library.PackTemplate{{ID: "t1", Category: "c1", Body: "a"}},
	}
	res := New().CategoryPack(p)
	require.False(t, res.IsValid)
	containsMessage(t, res.Errors, "name is required")
	containsMessage(t, res.Errors, "category.name is required")
	containsMessage(t, res.Errors, "templates[0].label is required")
}

func validAdPack() *library.AdPack {
	return &library.AdPack{
		ID:      "ap1",
		Name:    "Realtor Starter",
		Niche:   "real-estate",
		Version: "1.2.0",
		Author:  "Acme",
		Categories: []library.AdPackCategory{
			{ID: "a", Name: "Listings", Templates: []library.AdPackTemplate{
				{ID: "x", Title: "New listing", Content: "Just listed!", Keywords: []string{"listing"}},
			}},
		},
	}
}

func TestAdPack(t *testing.T) {
	v := New()
	assert.True(t, v.AdPack(validAdPack()).IsValid)

	p := validAdPack()
	p.Categories = nil
	containsMessage(t, v.AdPack(p).Errors, "categories is required")

	p = validAdPack()
	p.Version = "1.2"
	containsMessage(t, v.AdPack(p).Errors, "version must be a version in x.y.z form")

	p = validAdPack()
	p.Categories[0].Templates[0].Title = ""
	containsMessage(t, v.AdPack(p).Errors, "categories[0].templates[0].title is required")

	p = validAdPack()
	p.Categories = append(p.Categories, library.AdPackCategory{ID: "b", Name: "LISTINGS"})
	containsMessage(t, v.AdPack(p).Errors, `categories[1].name "LISTINGS" appears more than once`)
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"  plain  ",
		"<b>bold</b> & more",
		"already &amp; escaped &lt;tag&gt;",
		"&#32; leading entity space",
		"quotes ' and \"",
		"",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt; &amp; more", Text("<b>bold</b> & more"))
}

func TestSanitize_Idempotent(t *testing.T) {
	tmpl := library.Template{
		ID:       " t1 ",
		Label:    " <i>Hi</i> ",
		Category: "c1 ",
		Keywords: []string{" Hello", "hello", "", "  ", "A&B"},
		Body:     "Tom & Jerry\n",
	}
	st := SanitizeTemplate(tmpl)
	assert.Equal(t, st, SanitizeTemplate(st))
	assert.Equal(t, []string{"hello", "a&amp;b"}, st.Keywords)
	assert.Equal(t, " <i>Hi</i> ", tmpl.Label, "input must not be mutated")

	cat := library.Category{ID: " c1", Name: " Sales & Support ", Description: "<desc>"}
	sc := SanitizeCategory(cat)
	assert.Equal(t, sc, SanitizeCategory(sc))

	set := library.Settings{Theme: " Dark ", AIProvider: "OpenAI ", BusinessDescription: " We sell <stuff> ", AffiliateLinkStructure: " https://x.io/?u={url}&a=1 "}
	ss := SanitizeSettings(set)
	assert.Equal(t, ss, SanitizeSettings(ss))
	assert.Equal(t, "https://x.io/?u={url}&a=1", ss.AffiliateLinkStructure)

	lic := library.License{Key: " abcd-1234 ", Tier: " PRO", Email: " Me@Example.com "}
	sl := SanitizeLicense(lic)
	assert.Equal(t, sl, SanitizeLicense(sl))

	ks := library.KeywordStats{Keyword: " Refund & Return "}
	sk := SanitizeKeywordStats(ks)
	assert.Equal(t, sk, SanitizeKeywordStats(sk))

	cp := library.CategoryPack{
		Name:      " Pack ",
		Version:   " 1.0 ",
		Category:  library.PackCategory{ID: "c1", Name: "<Sales>"},
		Templates: []library.PackTemplate{{ID: "t1", Label: "a & b", Category: "c1", Keywords: []string{"X"}, Body: " b "}},
	}
	scp := SanitizeCategoryPack(cp)
	assert.Equal(t, scp, SanitizeCategoryPack(scp))
	assert.Equal(t, "a & b", cp.Templates[0].Label, "input must not be mutated")

	ap := *validAdPack()
	ap.Categories[0].Templates[0].Content = "Just <listed> & sold "
	sap := SanitizeAdPack(ap)
	assert.Equal(t, sap, SanitizeAdPack(sap))
}
