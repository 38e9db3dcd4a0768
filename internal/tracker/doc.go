// Package tracker turns a stream of noisy playback observations into a
// bounded, deduplicated, most-recent-first history persisted through a
// storage.Store.
//
// A Session is the per-page context: it owns the registry of observed
// elements, a Gate deciding whether the page is tracked, a Scheduler that
// debounces position updates, and a Reconciler that upserts records.
package tracker
