// Package protocol defines the wire-level messages exchanged between master
// and slave: the TestSpec a master submits, and the progress reports a
// slave pushes back.
package protocol

import "time"

// ReportParams configures how the slave should size the sketches it builds
// for this run — currently just the Histogram bucket count and percentiles.
type ReportParams struct {
	NumBuckets  int       `json:"numBuckets,omitempty"`
	Percentiles []float64 `json:"percentiles,omitempty"`
}

// TestSpec is the closed, data-only description of a load test submitted to
// a slave. It replaces an opaque program: Generator names a pre-registered
// request generator rather than code to evaluate.
type TestSpec struct {
	Generator    string        `json:"generator"`
	Concurrency  int           `json:"concurrency"`
	Duration     time.Duration `json:"duration"`
	RateTarget   float64       `json:"rateTarget"`
	ReportParams ReportParams  `json:"reportParams"`
}

// DefaultReportParams returns the same values as
// stats.DefaultHistogramBuckets and stats.DefaultPercentiles, written out
// here as literals.
func DefaultReportParams() ReportParams {
	return ReportParams{
		NumBuckets:  3000,
		Percentiles: []float64{0.95, 0.99},
	}
}
