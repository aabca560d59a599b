// Package migrate detects the schema generation of a template store and
// brings it forward to the current generation on startup.
//
// Each generation is its own Go type (V0, V1, V2) and the upgrade steps
// between adjacent generations are pure functions. Runner loads the store
// as its detected generation, applies the chain, writes the result back and
// only then records the schema marker, so a failed run is retried from the
// beginning on the next start.
package migrate
