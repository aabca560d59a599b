// Package packs encodes and decodes the exchange documents used to move
// templates between installations.
//
// Two document kinds exist. A category pack carries one category and its
// templates; an ad pack carries several categories for a niche. Parse
// detects the kind, decodes it and validates the whole document, so a
// malformed pack is rejected as a unit. SerializeCategory and SerializeAdPack
// project stored entities into documents, and Exporter assembles them from
// the repository.
package packs
