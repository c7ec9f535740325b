package stats

import "sync"

// Registry holds one Reportable per distinct stat name. It contains an
// entry for name n if and only if at least one slave has reported a stat
// named n since the registry was created (or last cleared).
type Registry struct {
	mu    sync.Mutex
	byName map[string]*Reportable
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Reportable)}
}

// MergeReport folds a newly-reported snapshot from a slave into the
// Reportable registered under name. The
// first time a name is seen, a Reportable is created for it from the
// snapshot's own kind and parameters; subsequent reports merge into the
// existing Reportable.
func (r *Registry) MergeReport(name string, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep, ok := r.byName[name]
	if !ok {
		var err error
		rep, err = NewReportable(name, snap.Type, snap.Params)
		if err != nil {
			return err
		}
		r.byName[name] = rep
	}
	return rep.Merge(snap)
}

// Names returns every stat name currently known to the registry, in no
// particular order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// Get returns the Reportable registered under name, if any.
func (r *Registry) Get(name string) (*Reportable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep, ok := r.byName[name]
	return rep, ok
}

// NextWindow snapshots and clears the interval view of every registered
// Reportable, returning the per-name snapshots for transmission (or, on the
// master side, for pushing out to report consumers).
func (r *Registry) NextWindow() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Snapshot, len(r.byName))
	for name, rep := range r.byName {
		out[name] = rep.Next()
	}
	return out
}

// CumulativeSummaries returns the cumulative-view summary for every
// registered stat name.
func (r *Registry) CumulativeSummaries() map[string]Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Summary, len(r.byName))
	for name, rep := range r.byName {
		out[name] = rep.Summary()
	}
	return out
}

// Clear drops every registered Reportable. Used between runs so a fresh run
// starts with an empty registry rather than one seeded by the previous
// run's stat names.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName = make(map[string]*Reportable)
}
