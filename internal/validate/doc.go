// Package validate checks library entities and exchange documents and
// normalises their string fields.
//
// Rules are declared as `validate:` struct tags on the types in
// internal/library and evaluated by a single go-playground/validator
// instance. A handful of cross-field rules that tags cannot express
// (license expiry, affiliate placeholder, pack category match, unique
// ad-pack category names) are registered as struct-level validations.
//
// Validation never mutates its input and never performs I/O. Sanitize
// functions take values and return new values; each is idempotent.
package validate
