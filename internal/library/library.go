// ABOUTME: Entity types for the template library: templates, categories, settings and stats
// ABOUTME: Struct tags carry both the JSON shape and the declarative validation rules

package library

import "time"

// Template is a reusable message stored in the library.
type Template struct {
	ID         string    `json:"id" validate:"required,max=100"`
	Label      string    `json:"label" validate:"required,max=100"`
	Category   string    `json:"category" validate:"max=100"` // soft reference to Category.ID
	Keywords   []string  `json:"keywords" validate:"max=20,dive,max=50"`
	Body       string    `json:"body" validate:"required,max=1000"`
	IsPrebuilt bool      `json:"isPrebuilt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	UsageCount int       `json:"usageCount" validate:"gte=0"`
}

// Category groups templates. TemplateCount is a derived cache.
type Category struct {
	ID            string    `json:"id" validate:"required,max=100"`
	Name          string    `json:"name" validate:"required,max=50"`
	Description   string    `json:"description" validate:"max=200"`
	IsPrebuilt    bool      `json:"isPrebuilt"`
	TemplateCount int       `json:"templateCount" validate:"gte=0"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AI provider values accepted in Settings.AIProvider
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// AffiliatePlaceholder must appear in a non-empty affiliate link structure.
const AffiliatePlaceholder = "{url}"

// Settings holds application settings for the current schema generation.
// APIKey is stored as handed in; encrypting it is the caller's job.
type Settings struct {
	Theme           string `json:"theme" validate:"oneof=light dark system"`
	DefaultCategory string `json:"defaultCategory" validate:"max=100"`
	AutoSuggest     bool   `json:"autoSuggest"`
	Hotkey          string `json:"hotkey" validate:"max=32"`

	// Added in generation 2
	BusinessDescription    string `json:"businessDescription" validate:"max=500"`
	AIProvider             string `json:"aiProvider" validate:"oneof=none openai anthropic gemini"`
	APIKey                 string `json:"apiKey,omitempty" validate:"max=512"`
	AffiliateLinkStructure string `json:"affiliateLinkStructure" validate:"max=500"`
	OnboardingCompleted    bool   `json:"onboardingCompleted"`
}

// DefaultSettings returns a fresh copy of the default settings.
func DefaultSettings() Settings {
	return Settings{
		Theme:       "system",
		AutoSuggest: true,
		Hotkey:      "Ctrl+Shift+Space",
		AIProvider:  ProviderNone,
	}
}

// License tiers
const (
	TierFree     = "free"
	TierPro      = "pro"
	TierLifetime = "lifetime"
)

// License describes the activated product license.
type License struct {
	Key         string     `json:"key" validate:"required,min=8,max=64,licensekey"`
	Tier        string     `json:"tier" validate:"oneof=free pro lifetime"`
	Email       string     `json:"email,omitempty" validate:"omitempty,email"`
	ActivatedAt time.Time  `json:"activatedAt" validate:"required"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// KeywordStats tracks how often a keyword matched and how often a
// suggested template was chosen for it.
type KeywordStats struct {
	Keyword    string    `json:"keyword" validate:"required,max=100"`
	Matches    int       `json:"matches" validate:"gte=0"`
	Chosen     int       `json:"chosen" validate:"gte=0,ltefield=Matches"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// AdPackMeta records an installed ad pack.
type AdPackMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	ImportedAt  time.Time `json:"importedAt"`
	CategoryIDs []string  `json:"categoryIds"`
}
