// ABOUTME: Structural validators for library entities and exchange documents
// ABOUTME: One generic validator/v10 pass over struct tags plus a few struct-level rules

package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/2389/templatekit/internal/library"
)

// Result is the outcome of validating one entity.
type Result struct {
	IsValid bool
	Errors  []string
}

// Err returns a *library.ValidationError for an invalid result, nil otherwise.
func (r Result) Err(entity string) error {
	if r.IsValid {
		return nil
	}
	return &library.ValidationError{Entity: entity, Reasons: r.Errors}
}

var licenseKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

// Validator checks entities against their declarative rules.
// It is stateless after construction and safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the library's custom rules registered.
func New() *Validator {
	v := validator.New()

	// Report JSON field names so messages match the exchange documents
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("licensekey", func(fl validator.FieldLevel) bool {
		return licenseKeyPattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(settingsRules, library.Settings{})
	v.RegisterStructValidation(licenseRules, library.License{})
	v.RegisterStructValidation(categoryPackRules, library.CategoryPack{})
	v.RegisterStructValidation(adPackRules, library.AdPack{})

	return &Validator{v: v}
}

// Template validates a template.
func (val *Validator) Template(t *library.Template) Result { return val.check(t, "template") }

// Category validates a category.
func (val *Validator) Category(c *library.Category) Result { return val.check(c, "category") }

// Settings validates application settings.
func (val *Validator) Settings(s *library.Settings) Result { return val.check(s, "settings") }

// License validates a license.
func (val *Validator) License(l *library.License) Result { return val.check(l, "license") }

// KeywordStats validates keyword statistics.
func (val *Validator) KeywordStats(ks *library.KeywordStats) Result {
	return val.check(ks, "keyword stats")
}

// CategoryPack validates a category pack, its category and every template.
func (val *Validator) CategoryPack(p *library.CategoryPack) Result {
	return val.check(p, "category pack")
}

// AdPack validates an ad pack, every category and every template.
func (val *Validator) AdPack(p *library.AdPack) Result { return val.check(p, "ad pack") }

func (val *Validator) check(entity any, name string) Result {
	if entity == nil || reflect.ValueOf(entity).IsNil() {
		return Result{Errors: []string{name + " is required"}}
	}

	err := val.v.Struct(entity)
	if err == nil {
		return Result{IsValid: true, Errors: []string{}}
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Result{Errors: []string{fmt.Sprintf("%s could not be validated: %v", name, err)}}
	}

	errs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, message(fe))
	}
	return Result{Errors: errs}
}

// message renders a field error using the JSON path of the field,
// e.g. "categories[0].templates[1].title is required".
func message(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must have at most %s items", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must have at least %s items", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "ltefield":
		return fmt.Sprintf("%s must be less than or equal to %s", field, lowerFirst(param))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(param, " ", ", "))
	case "email":
		return field + " must be a valid email address"
	case "semver":
		return field + " must be a version in x.y.z form"
	case "licensekey":
		return field + " may only contain letters, digits and single dashes"
	case "placeholder":
		return fmt.Sprintf("%s must contain the %s placeholder", field, param)
	case "afteractivation":
		return field + " must be after activatedAt"
	case "noexpiry":
		return field + " must not be set for lifetime licenses"
	case "packcategory":
		return fmt.Sprintf("%s must match pack category %q", field, param)
	case "unique":
		return fmt.Sprintf("%s %q appears more than once", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// fieldPath drops the leading struct type name from a namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func settingsRules(sl validator.StructLevel) {
	s := sl.Current().Interface().(library.Settings)
	if s.AffiliateLinkStructure != "" && !strings.Contains(s.AffiliateLinkStructure, library.AffiliatePlaceholder) {
		sl.ReportError(s.AffiliateLinkStructure, "affiliateLinkStructure", "AffiliateLinkStructure", "placeholder", library.AffiliatePlaceholder)
	}
}

func licenseRules(sl validator.StructLevel) {
	l := sl.Current().Interface().(library.License)
	if l.ExpiresAt == nil {
		return
	}
	if l.Tier == library.TierLifetime {
		sl.ReportError(l.ExpiresAt, "expiresAt", "ExpiresAt", "noexpiry", "")
		return
	}
	if !l.ActivatedAt.IsZero() && !l.ExpiresAt.After(l.ActivatedAt) {
		sl.ReportError(l.ExpiresAt, "expiresAt", "ExpiresAt", "afteractivation", "")
	}
}

func categoryPackRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(library.CategoryPack)
	for i, t := range p.Templates {
		if t.Category != "" && t.Category != p.Category.ID {
			sl.ReportError(t.Category, fmt.Sprintf("templates[%d].category", i), "Category", "packcategory", p.Category.ID)
		}
	}
}

func adPackRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(library.AdPack)
	seen := make(map[string]bool, len(p.Categories))
	for i, c := range p.Categories {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" {
			continue
		}
		if seen[key] {
			sl.ReportError(c.Name, fmt.Sprintf("categories[%d].name", i), "Name", "unique", c.Name)
		}
		seen[key] = true
	}
}
