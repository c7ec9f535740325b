// Package stats implements the mergeable statistics sketches that the master
// and slaves exchange: Histogram, Accumulator, ResultsCounter, Uniques, Peak
// and Rate, plus the Reportable wrapper that pairs an interval view with a
// cumulative one.
package stats

import "errors"

// ErrUnknownSketchKind is returned by NewFromType when the wire-level type
// name does not match any registered sketch kind.
var ErrUnknownSketchKind = errors.New("stats: unknown sketch kind")

// ErrIncompatibleMerge is returned when two sketches of the same kind cannot
// be merged because their parameters differ (e.g. histograms with different
// bucket counts).
var ErrIncompatibleMerge = errors.New("stats: incompatible sketches")

// Summary is the JSON-friendly view a sketch produces on demand. Keys are
// sketch-specific; callers treat it as an opaque bag for rendering.
type Summary map[string]interface{}

// Sketch is the common interface every mergeable statistic implements.
// Implementations are plain values (not safe for concurrent use without
// external synchronization); the master pool and the slave agent each own a
// single goroutine's worth of sketch mutation at a time.
//
// Put is deliberately not part of this interface: numeric sketches
// (Histogram, Accumulator, Peak, Rate) accept samples via Put(float64);
// keyed sketches (ResultsCounter, Uniques) accept them via PutKey(string).
// Reportable dispatches to whichever one a concrete sketch implements.
type Sketch interface {
	// Clear resets the sketch to its zero state, keeping its parameters.
	Clear()

	// Summary returns the current JSON-friendly view.
	Summary() Summary

	// Merge folds a raw snapshot of the same kind and compatible
	// parameters into this one. It returns ErrIncompatibleMerge if the
	// kind or parameters don't match.
	Merge(other Snapshot) error

	// ToSnapshot captures this sketch's current state as a wire-level
	// Snapshot, ready to be merged on the receiving side.
	ToSnapshot() Snapshot

	// Length reports the number of samples ever put into this sketch.
	Length() int
}

// numericPutter is implemented by sketches that accept float64 samples.
type numericPutter interface {
	Put(sample float64)
}

// keyedPutter is implemented by sketches that accept string-keyed samples.
type keyedPutter interface {
	PutKey(key string)
}
