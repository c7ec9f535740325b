package stats

import (
	"fmt"
	"math"
	"sort"
)

// DefaultHistogramBuckets is the default fixed-width bucket count: one
// bucket per integer unit, matching the wire protocol's default.
const DefaultHistogramBuckets = 3000

// DefaultPercentiles are the percentiles a Histogram reports by default.
var DefaultPercentiles = []float64{0.95, 0.99}

// Histogram is a fixed-width bucket histogram over non-negative integer
// samples, with an unbounded overflow list for samples that don't fit.
// Bucket i counts samples equal to i; samples >= NumBuckets go to Extra.
type Histogram struct {
	NumBuckets  int
	Percentiles []float64

	items  []int64
	extra  []int64
	min    int64
	max    int64
	sum    int64
	length int64
	sorted bool // whether extra is sorted ascending
}

// NewHistogram constructs a Histogram with the given bucket count and
// reported percentiles. A zero or negative numBuckets falls back to
// DefaultHistogramBuckets; a nil percentiles falls back to DefaultPercentiles.
func NewHistogram(numBuckets int, percentiles []float64) *Histogram {
	if numBuckets <= 0 {
		numBuckets = DefaultHistogramBuckets
	}
	if percentiles == nil {
		percentiles = DefaultPercentiles
	}
	return &Histogram{
		NumBuckets:  numBuckets,
		Percentiles: percentiles,
		items:       make([]int64, numBuckets),
		min:         -1,
		max:         -1,
	}
}

func (h *Histogram) Put(sample float64) {
	s := int64(sample)
	if s >= 0 && s < int64(h.NumBuckets) {
		h.items[s]++
	} else {
		h.extra = append(h.extra, s)
		h.sorted = false
	}
	h.sum += s
	h.length++
	if h.min == -1 || s < h.min {
		h.min = s
	}
	if h.max == -1 || s > h.max {
		h.max = s
	}
}

func (h *Histogram) Clear() {
	h.items = make([]int64, h.NumBuckets)
	h.extra = nil
	h.min = -1
	h.max = -1
	h.sum = 0
	h.length = 0
	h.sorted = false
}

func (h *Histogram) Length() int { return int(h.length) }

// Percentile returns the sample value at rank p (0 < p < 1), per the target
// rank k = floor(length*(1-p)): scanning extra (sorted lazily, descending
// effect via index from the end) when it holds more than k samples, falling
// back to a high-to-low bucket scan otherwise.
func (h *Histogram) Percentile(p float64) int64 {
	if h.length == 0 {
		return 0
	}
	k := int64(math.Floor(float64(h.length) * (1 - p)))

	if int64(len(h.extra)) > k {
		if !h.sorted {
			sort.Slice(h.extra, func(i, j int) bool { return h.extra[i] < h.extra[j] })
			h.sorted = true
		}
		idx := int64(len(h.extra)) - k - 1
		if idx < 0 {
			idx = 0
		}
		return h.extra[idx]
	}

	// remaining is the 0-indexed rank of the target sample within items
	// alone, once the top len(extra) ranks are accounted for. The scan
	// needs a strictly greater running count than remaining: "running >=
	// remaining" is satisfied trivially by the first bucket, even an
	// empty one, whenever remaining is 0.
	remaining := k - int64(len(h.extra))
	running := int64(0)
	for i := h.NumBuckets - 1; i >= 0; i-- {
		running += h.items[i]
		if running > remaining {
			return int64(i)
		}
	}
	return 0
}

// Median is shorthand for Percentile(0.5).
func (h *Histogram) Median() int64 { return h.Percentile(0.5) }

// Stddev returns the population standard deviation over items ∪ extra.
func (h *Histogram) Stddev() float64 {
	if h.length == 0 {
		return 0
	}
	mean := float64(h.sum) / float64(h.length)
	var sumSq float64
	for i, count := range h.items {
		if count == 0 {
			continue
		}
		d := float64(i) - mean
		sumSq += d * d * float64(count)
	}
	for _, v := range h.extra {
		d := float64(v) - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(h.length))
}

func (h *Histogram) Summary() Summary {
	s := Summary{
		"min":    h.min,
		"max":    h.max,
		"sum":    h.sum,
		"length": h.length,
		"mean":   h.mean(),
		"stddev": h.Stddev(),
		"median": h.Median(),
	}
	for _, p := range h.Percentiles {
		s[fmt.Sprintf("p%g", p*100)] = h.Percentile(p)
	}
	return s
}

func (h *Histogram) mean() float64 {
	if h.length == 0 {
		return 0
	}
	return float64(h.sum) / float64(h.length)
}

func (h *Histogram) ToSnapshot() Snapshot {
	items := make([]int, len(h.items))
	for i, v := range h.items {
		items[i] = int(v)
	}
	extra := make([]int, len(h.extra))
	for i, v := range h.extra {
		extra[i] = int(v)
	}
	return Snapshot{
		Type: "Histogram",
		Params: map[string]interface{}{
			"numBuckets": h.NumBuckets,
		},
		Fields: map[string]interface{}{
			"items":  items,
			"extra":  extra,
			"sum":    h.sum,
			"min":    h.min,
			"max":    h.max,
			"length": h.length,
		},
	}
}

// Merge folds another histogram's snapshot into this one. Bucket counts add
// element-wise, overflow lists concatenate, min/max/sum/length compose while
// ignoring the -1 sentinel used for an empty side.
func (h *Histogram) Merge(other Snapshot) error {
	if other.Type != "Histogram" {
		return fmt.Errorf("%w: expected Histogram, got %s", ErrIncompatibleMerge, other.Type)
	}
	// Accept both params.numBuckets and the legacy params.buckets alias.
	otherBuckets := fieldInt(other.Params, "numBuckets", -1)
	if otherBuckets == -1 {
		otherBuckets = fieldInt(other.Params, "buckets", h.NumBuckets)
	}
	if otherBuckets != h.NumBuckets {
		return fmt.Errorf("%w: incompatible histograms (%d vs %d buckets)", ErrIncompatibleMerge, h.NumBuckets, otherBuckets)
	}

	items := fieldIntSlice(other.Fields, "items")
	for i := 0; i < len(items) && i < len(h.items); i++ {
		h.items[i] += int64(items[i])
	}

	extra := fieldIntSlice(other.Fields, "extra")
	for _, v := range extra {
		h.extra = append(h.extra, int64(v))
	}
	h.sorted = false

	otherSum := int64(fieldFloat(other.Fields, "sum", 0))
	otherMin := int64(fieldFloat(other.Fields, "min", -1))
	otherMax := int64(fieldFloat(other.Fields, "max", -1))
	otherLength := int64(fieldFloat(other.Fields, "length", 0))

	h.sum += otherSum
	h.length += otherLength
	if otherMin != -1 && (h.min == -1 || otherMin < h.min) {
		h.min = otherMin
	}
	if otherMax != -1 && (h.max == -1 || otherMax > h.max) {
		h.max = otherMax
	}
	return nil
}
