// Package masterpool implements the master-side worker pool: it submits a
// TestSpec to every slave, polls liveness, merges incoming progress, and
// detects global completion.
package masterpool

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/larsson/nodeload/internal/observability"
	"github.com/larsson/nodeload/internal/protocol"
	"github.com/larsson/nodeload/internal/stats"
)

// Config bundles the pool's tunable timings and storm-protection limits.
type Config struct {
	PingPeriod      time.Duration
	ProgressWindow  time.Duration
	StormRatePerSec float64
	StormBurst      int

	// MasterAddr is this master's own reachable address (e.g.
	// "http://host:port"), sent to each slave on submission so it knows
	// where to push progress and so SlaveContext can be established.
	MasterAddr string
}

// DefaultConfig returns the pool's defaults, matching the documented
// protocol constants.
func DefaultConfig() Config {
	return Config{
		PingPeriod:      3 * time.Second,
		ProgressWindow:  500 * time.Millisecond,
		StormRatePerSec: 20,
		StormBurst:      40,
	}
}

// SlaveOutcome is one slave's terminal state, reported to the pool's
// completion callback.
type SlaveOutcome struct {
	ID    string
	State SlaveState
}

// ReportFunc is invoked whenever the progress window fires: interval holds
// this window's per-stat snapshots (already drained from each Reportable's
// interval view), cumulative holds the run-to-date summary for every stat.
type ReportFunc func(interval map[string]stats.Snapshot, cumulative map[string]stats.Summary)

// WorkerPool is the master-side aggregate described in the data model: a
// map of slaves, the active test spec, the Reportable registry, and the two
// timers (ping, progress window). Exactly one instance is expected to be
// live per master process.
type WorkerPool struct {
	mu       sync.Mutex
	slaves   map[string]*SlaveDescriptor
	spec     protocol.TestSpec
	registry *stats.Registry
	limiter  *TokenBucketLimiter
	cfg      Config

	pingTicker    *time.Ticker
	pingCancel    context.CancelFunc
	progressTimer *time.Timer

	onReport   ReportFunc
	onComplete func([]SlaveOutcome)
	callbackOnce sync.Once

	transport *transport
}

// NewWorkerPool constructs a pool over the given slave descriptors. onReport
// may be nil if no renderer is attached yet (e.g. in tests).
func NewWorkerPool(slaves []SlaveDescriptor, cfg Config, onReport ReportFunc) *WorkerPool {
	byID := make(map[string]*SlaveDescriptor, len(slaves))
	for i := range slaves {
		d := slaves[i]
		d.State = StateNotStarted
		byID[d.ID] = &d
	}
	return &WorkerPool{
		slaves:    byID,
		registry:  stats.NewRegistry(),
		limiter:   NewTokenBucketLimiter(cfg.StormRatePerSec, cfg.StormBurst),
		cfg:       cfg,
		onReport:  onReport,
		transport: newTransport(),
	}
}

// Start submits spec to every slave, marks them running, and begins the
// liveness ping loop. callback fires exactly once, when every slave reaches
// a terminal state. Whatever stayAlive says, the pool tears itself down
// (stops timers, clears the registry and slave map) just before invoking
// callback.
func (p *WorkerPool) Start(spec protocol.TestSpec, callback func([]SlaveOutcome), stayAlive bool) {
	p.mu.Lock()
	p.spec = spec
	p.onComplete = callback
	ctx, cancel := context.WithCancel(context.Background())
	p.pingCancel = cancel
	for _, d := range p.slaves {
		d.State = StateRunning
		go p.transport.submit(d.Addr(), d.ID, p.cfg.MasterAddr, spec)
	}
	p.pingTicker = time.NewTicker(p.cfg.PingPeriod)
	ticker := p.pingTicker
	p.mu.Unlock()

	observability.ConnectedSlaves.Set(float64(len(p.slaves)))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sendPings()
			}
		}
	}()

	_ = stayAlive // the reference pool always releases timers on completion; stayAlive is honored by callers that choose not to construct a new pool for the next run
}

// sendPings runs one liveness round: slaves stuck in `ping` from the
// previous round (no 200/410 observed) are marked error; slaves currently
// `running` are probed.
func (p *WorkerPool) sendPings() {
	p.mu.Lock()
	var toProbe []*SlaveDescriptor
	for _, d := range p.slaves {
		switch d.State {
		case StatePing:
			d.State = StateError
			log.Printf("⚠️ slave %s missed its liveness probe, marking error", d.ID)
			observability.PingFailures.WithLabelValues(d.ID).Inc()
		case StateRunning:
			d.State = StatePing
			toProbe = append(toProbe, d)
		}
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range toProbe {
		wg.Add(1)
		go func(d *SlaveDescriptor) {
			defer wg.Done()
			state, err := p.transport.probeState(d.Addr())
			if err != nil {
				return // left in `ping`; next round's step 1 marks it error
			}
			p.mu.Lock()
			if cur, ok := p.slaves[d.ID]; ok && cur.State == StatePing {
				cur.State = state
			}
			p.mu.Unlock()
		}(d)
	}
	wg.Wait()

	p.checkFinished()
}

// checkFinished fires the completion callback exactly once, when every
// slave has reached a terminal state.
func (p *WorkerPool) checkFinished() {
	p.mu.Lock()
	allTerminal := true
	outcomes := make([]SlaveOutcome, 0, len(p.slaves))
	for _, d := range p.slaves {
		if !d.State.Terminal() {
			allTerminal = false
		}
		outcomes = append(outcomes, SlaveOutcome{ID: d.ID, State: d.State})
	}
	if !allTerminal {
		p.mu.Unlock()
		return
	}
	if p.pingTicker != nil {
		p.pingTicker.Stop()
	}
	if p.pingCancel != nil {
		p.pingCancel()
	}
	if p.progressTimer != nil {
		p.progressTimer.Stop()
		p.progressTimer = nil
	}
	p.registry.Clear()
	p.slaves = make(map[string]*SlaveDescriptor)
	callback := p.onComplete
	p.mu.Unlock()

	p.callbackOnce.Do(func() {
		if callback != nil {
			callback(outcomes)
		}
	})
}

// ReceiveProgress merges one slave's progress report into the Reportable
// registry and arms the progress window. Reports from slave IDs the pool
// doesn't recognize are silently dropped.
func (p *WorkerPool) ReceiveProgress(report protocol.StatReport) {
	p.mu.Lock()
	d, known := p.slaves[report.SlaveID]
	if !known {
		p.mu.Unlock()
		return
	}
	d.State = StateRunning
	p.mu.Unlock()

	for _, entry := range report.Stats {
		if err := p.registry.MergeReport(entry.Name, entry.Interval); err != nil {
			log.Printf("⚠️ merge error for stat %q from slave %s: %v", entry.Name, report.SlaveID, err)
			observability.MergeErrors.WithLabelValues(entry.Name).Inc()
			continue
		}
		observability.SamplesMerged.WithLabelValues(entry.Name, entry.Interval.Type).Add(1)
	}

	p.scheduleProgressReport()
}

// Allow reports whether slaveID may post progress right now, per the
// per-slave storm-protection limiter.
func (p *WorkerPool) Allow(slaveID string) bool {
	return p.limiter.Allow(slaveID)
}

// scheduleProgressReport arms a single coalescing timer for the progress
// window; calls within an already-armed window are no-ops.
func (p *WorkerPool) scheduleProgressReport() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progressTimer != nil {
		return
	}
	p.progressTimer = time.AfterFunc(p.cfg.ProgressWindow, p.emitReport)
}

func (p *WorkerPool) emitReport() {
	p.mu.Lock()
	p.progressTimer = nil
	registry := p.registry
	onReport := p.onReport
	p.mu.Unlock()

	interval := registry.NextWindow()
	cumulative := registry.CumulativeSummaries()
	observability.ReportsEmitted.Inc()
	if onReport != nil {
		onReport(interval, cumulative)
	}
}

// Outcomes returns a snapshot of every slave's current state. Intended for
// status endpoints and tests.
func (p *WorkerPool) Outcomes() []SlaveOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SlaveOutcome, 0, len(p.slaves))
	for _, d := range p.slaves {
		out = append(out, SlaveOutcome{ID: d.ID, State: d.State})
	}
	return out
}
