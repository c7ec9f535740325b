package stats

import "fmt"

// Reportable pairs an interval sketch with a cumulative sketch of the same
// kind. The interval view is drained and cleared on every progress window;
// the cumulative view keeps growing for the lifetime of the run.
//
// Merge is intentionally asymmetric: it only ever accepts a raw Snapshot,
// never another *Reportable. A Reportable is a local pairing of two views
// over the same samples; merging two of them together has no sound
// semantics (which Reportable's interval would own the result?). Only a
// Snapshot, a point-in-time view of someone else's samples, can be merged
// in.
type Reportable struct {
	Name       string
	Kind       string
	Interval   Sketch
	Cumulative Sketch
}

// NewReportable builds a Reportable of the given kind, constructing both its
// interval and cumulative sketches from the same parameters.
func NewReportable(name, kind string, params map[string]interface{}) (*Reportable, error) {
	interval, err := NewFromType(kind, params)
	if err != nil {
		return nil, err
	}
	cumulative, err := NewFromType(kind, params)
	if err != nil {
		return nil, err
	}
	return &Reportable{Name: name, Kind: kind, Interval: interval, Cumulative: cumulative}, nil
}

// Put forwards a numeric sample to both views. It is a no-op if the
// underlying sketch kind is keyed rather than numeric.
func (r *Reportable) Put(sample float64) {
	if p, ok := r.Interval.(numericPutter); ok {
		p.Put(sample)
	}
	if p, ok := r.Cumulative.(numericPutter); ok {
		p.Put(sample)
	}
}

// PutKey forwards a keyed sample to both views. It is a no-op if the
// underlying sketch kind is numeric rather than keyed.
func (r *Reportable) PutKey(key string) {
	if p, ok := r.Interval.(keyedPutter); ok {
		p.PutKey(key)
	}
	if p, ok := r.Cumulative.(keyedPutter); ok {
		p.PutKey(key)
	}
}

// Next snapshots the interval view and clears it, ready for the next
// progress window. The interval is only cleared when it actually holds
// samples, so a quiet window between reports doesn't reset a sketch that
// has nothing to reset.
func (r *Reportable) Next() Snapshot {
	snap := r.Interval.ToSnapshot()
	if r.Interval.Length() > 0 {
		r.Interval.Clear()
	}
	return snap
}

// Merge folds an incoming snapshot, reported by a slave for this stat name,
// into both views: the interval view accumulates it for the window now in
// progress, and the cumulative view accumulates it for the run as a whole.
func (r *Reportable) Merge(snap Snapshot) error {
	if snap.Type != r.Kind {
		return fmt.Errorf("%w: %s expected %s, got %s", ErrIncompatibleMerge, r.Name, r.Kind, snap.Type)
	}
	if err := r.Interval.Merge(snap); err != nil {
		return err
	}
	if err := r.Cumulative.Merge(snap); err != nil {
		return err
	}
	return nil
}

// Summary reports the cumulative view's summary, which is what end-of-run
// and dashboard rendering care about.
func (r *Reportable) Summary() Summary {
	return r.Cumulative.Summary()
}
