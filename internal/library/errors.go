// ABOUTME: Error taxonomy shared by validation, migration, import and export
// ABOUTME: Typed errors carry detail; sentinels allow errors.Is matching

package library

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("pre-built conflict")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
	ErrParse      = errors.New("malformed document")
)

// ValidationError reports structural or business-rule violations.
type ValidationError struct {
	Entity  string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(e.Reasons, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError is returned when an import would overwrite a pre-built category.
type ConflictError struct {
	CategoryID string
	Name       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("category %q (%s) is pre-built and cannot be overwritten without override", e.Name, e.CategoryID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NotFoundError is returned when a referenced entity is absent.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps an underlying persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ParseError reports a malformed exchange document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing pack: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
