// ABOUTME: Schema generation detection for stores with or without an explicit marker
// ABOUTME: Marker first, then settings presence, then generation-2-only settings fields

package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/store"
)

// Settings fields that only generation 2 writes.
var gen2SettingsFields = []string{
	"onboardingCompleted",
	"aiProvider",
	"businessDescription",
	"affiliateLinkStructure",
}

// Snapshot is the persisted state the detector looks at.
type Snapshot struct {
	Marker   *int                       // explicit schema marker, nil if never written
	Settings map[string]json.RawMessage // raw settings record, nil if absent
}

// Detect returns the generation of a snapshot. Historical installs never
// wrote a marker, so the fallback order below must stay as it is.
func Detect(s Snapshot) Generation {
	if s.Marker != nil {
		return Generation(*s.Marker)
	}
	if s.Settings == nil {
		return GenFresh
	}
	for _, field := range gen2SettingsFields {
		if _, ok := s.Settings[field]; ok {
			return GenCurrent
		}
	}
	return GenLegacy
}

// Detector reads a Snapshot from the store and classifies it.
type Detector struct {
	store  store.Store
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(s store.Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: s, logger: logger.With("component", "migrate")}
}

// Snapshot reads the marker and the raw settings record.
func (d *Detector) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rec, err := d.store.Get(ctx, store.CollectionMeta, library.KeySchemaVersion)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return Snapshot{}, fmt.Errorf("reading schema marker: %w", err)
	default:
		v, err := strconv.Atoi(strings.TrimSpace(string(rec.Data)))
		if err != nil {
			return Snapshot{}, fmt.Errorf("decoding schema marker %q: %w", rec.Data, err)
		}
		snap.Marker = &v
	}

	rec, err = d.store.Get(ctx, store.CollectionMeta, library.KeySettings)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return Snapshot{}, fmt.Errorf("reading settings: %w", err)
	default:
		settings := make(map[string]json.RawMessage)
		if err := json.Unmarshal(rec.Data, &settings); err != nil {
			return Snapshot{}, fmt.Errorf("decoding settings: %w", err)
		}
		snap.Settings = settings
	}

	return snap, nil
}

// Detect returns the store's generation. Any read error is treated as a
// fresh store so that startup initialises rather than rewrites.
func (d *Detector) Detect(ctx context.Context) Generation {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		d.logger.Warn("schema detection failed, assuming fresh store", "error", err)
		return GenFresh
	}
	gen := Detect(snap)
	d.logger.Debug("detected schema generation", "generation", gen, "explicit_marker", snap.Marker != nil)
	return gen
}
