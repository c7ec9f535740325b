package stats

import "fmt"

// Accumulator tracks a running total and sample count.
type Accumulator struct {
	total  float64
	length int64
}

func NewAccumulator() *Accumulator { return &Accumulator{} }

func (a *Accumulator) Put(sample float64) {
	a.total += sample
	a.length++
}

func (a *Accumulator) Clear() {
	a.total = 0
	a.length = 0
}

func (a *Accumulator) Length() int { return int(a.length) }

func (a *Accumulator) Summary() Summary {
	mean := 0.0
	if a.length > 0 {
		mean = a.total / float64(a.length)
	}
	return Summary{"total": a.total, "length": a.length, "mean": mean}
}

func (a *Accumulator) ToSnapshot() Snapshot {
	return Snapshot{
		Type:   "Accumulator",
		Params: map[string]interface{}{},
		Fields: map[string]interface{}{
			"total":  a.total,
			"length": a.length,
		},
	}
}

func (a *Accumulator) Merge(other Snapshot) error {
	if other.Type != "Accumulator" {
		return fmt.Errorf("%w: expected Accumulator, got %s", ErrIncompatibleMerge, other.Type)
	}
	a.total += fieldFloat(other.Fields, "total", 0)
	a.length += int64(fieldFloat(other.Fields, "length", 0))
	return nil
}
