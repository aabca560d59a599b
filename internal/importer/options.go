// ABOUTME: Import strategy, per-call options and merger configuration
// ABOUTME: Also defines the planned actions and the import result counters

package importer

import (
	"fmt"
	"strings"
)

// Strategy decides what happens to existing user content on import.
type Strategy string

// Import strategies
const (
	StrategyMerge   Strategy = "merge"
	StrategyReplace Strategy = "replace"
)

// ParseStrategy converts a config or flag value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyMerge, "":
		return StrategyMerge, nil
	case StrategyReplace:
		return StrategyReplace, nil
	}
	return "", fmt.Errorf("unknown import strategy %q (want merge or replace)", s)
}

// Options controls one import.
type Options struct {
	Strategy Strategy

	// OverwriteDuplicates updates matching templates in place instead of skipping them.
	OverwriteDuplicates bool

	// OverridePrebuilt allows importing into pre-built categories and
	// overwriting pre-built templates.
	OverridePrebuilt bool
}

// Config holds merger settings that do not change between imports.
type Config struct {
	Concurrency      int     // template writes in flight per category
	MaxPackTemplates int     // preview warns above this many templates, 0 disables
	MinMeanKeywords  float64 // preview warns when the mean keyword count is lower
}

// DefaultConfig returns the default merger configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:      4,
		MaxPackTemplates: 500,
		MinMeanKeywords:  3,
	}
}

// Action is what an import does with one entity.
type Action int

// Planned actions
const (
	ActionCreate Action = iota
	ActionUpdate
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionSkip:
		return "skip"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Result summarises an applied import.
type Result struct {
	CategoriesCreated int `json:"categoriesCreated"`
	CategoriesSkipped int `json:"categoriesSkipped"`
	CategoriesDeleted int `json:"categoriesDeleted"`
	TemplatesImported int `json:"templatesImported"`
	TemplatesUpdated  int `json:"templatesUpdated"`
	TemplatesSkipped  int `json:"templatesSkipped"`
	TemplatesDeleted  int `json:"templatesDeleted"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
