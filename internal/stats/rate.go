package stats

import (
	"fmt"
	"time"
)

// Rate tracks a running count and reports it as a per-second rate since its
// own construction (or last Clear). Put(n) adds n to the count, so Put(1)
// per event counts events; Length returns that count.
type Rate struct {
	count     int64
	startedAt time.Time
}

func NewRate() *Rate {
	return &Rate{startedAt: time.Now()}
}

func (r *Rate) Put(sample float64) {
	r.count += int64(sample)
}

func (r *Rate) Clear() {
	r.count = 0
	r.startedAt = time.Now()
}

func (r *Rate) Length() int { return int(r.count) }

func (r *Rate) rate() float64 {
	elapsed := time.Since(r.startedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(r.count) / elapsed
}

func (r *Rate) Summary() Summary {
	return Summary{"count": r.count, "rate": r.rate()}
}

func (r *Rate) ToSnapshot() Snapshot {
	return Snapshot{
		Type:   "Rate",
		Params: map[string]interface{}{},
		Fields: map[string]interface{}{
			"count":          r.count,
			"elapsedSeconds": time.Since(r.startedAt).Seconds(),
		},
	}
}

func (r *Rate) Merge(other Snapshot) error {
	if other.Type != "Rate" {
		return fmt.Errorf("%w: expected Rate, got %s", ErrIncompatibleMerge, other.Type)
	}
	r.count += int64(fieldFloat(other.Fields, "count", 0))
	otherElapsed := fieldFloat(other.Fields, "elapsedSeconds", 0)
	backdated := time.Now().Add(-time.Duration(otherElapsed * float64(time.Second)))
	if backdated.Before(r.startedAt) {
		r.startedAt = backdated
	}
	return nil
}
