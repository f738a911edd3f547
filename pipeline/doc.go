// Package pipeline orchestrates the drain loop for the watch index.
//
// The Processor type runs a single work item through its lifecycle: control
// metadata validation, prompt rendering, provider dispatch, result merge,
// destination write and source acknowledgement. The Worker type drives
// repeating poll cycles, fanning a fetched batch out over a bounded worker
// pool and annotating failed items in place so nothing is silently dropped.
//
// Per-item failures are isolated: they never abort sibling items or the
// loop, and an item whose processing failed is left in the watch index,
// keeping at-least-once semantics.
package pipeline
