// Package fields owns the per-event output store.
//
// Ownership boundary:
// - field declarations (name, kind, shape, default)
// - live slot storage and views handed to decoder handlers
// - immutable snapshots handed to sinks
package fields
