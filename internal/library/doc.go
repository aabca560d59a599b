// Package library defines the template library's entities and typed access to them.
//
// # Entities
//
//   - Template: a reusable message (label, body, keywords, usage counter)
//   - Category: groups templates; TemplateCount is a derived cache
//   - Settings: application settings for the current schema generation
//   - License: activated product license
//   - KeywordStats: keyword match and selection counters
//   - AdPackMeta: record of an installed ad pack
//
// Exchange documents (CategoryPack, AdPack, Document) also live here so that
// validation, import and export share one definition.
//
// Struct tags carry the JSON field names and the declarative validation
// rules consumed by internal/validate.
//
// # Errors
//
// ValidationError, ConflictError, NotFoundError, StorageError and ParseError
// make up the error taxonomy. Each matches its sentinel with errors.Is:
//
//	if errors.Is(err, library.ErrConflict) { ... }
//
// # Repository
//
// Repository maps entities onto a store.Store. Templates are indexed by
// category so that counts and exports never scan the whole collection.
package library
