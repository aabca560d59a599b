// Package importer reconciles an incoming pack against the template library.
//
// Import is split into Plan and Apply. Plan reads the store and decides, for
// every incoming category and template, whether it is created, reused,
// updated or skipped. It performs no writes, which is what Preview builds
// on. Apply executes a plan: it purges user content first under the replace
// strategy, writes each category before its templates, writes the templates
// of a category concurrently, and finally recounts every touched category.
//
// Pre-built conflicts are detected while planning, so an import that would
// overwrite a protected category fails before anything is written.
package importer
