// Package slaveagent is the slave-side lifecycle agent: it accepts a
// submitted TestSpec, drives it against the local scheduler, answers
// liveness probes, and periodically pushes progress back to the master.
package slaveagent

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/larsson/nodeload/internal/loadgen"
	"github.com/larsson/nodeload/internal/protocol"
)

// SlaveContext is the slave-side singleton established on the first
// /remote submission: the id this slave was assigned and the reachable
// address of the master it reports to, plus the HTTP client bound to that
// master.
type SlaveContext struct {
	ID         string
	MasterAddr string
	Client     *http.Client
}

// Agent is the slave-side lifecycle controller. It owns the local
// scheduler and the generator catalog the scheduler resolves against, and
// exposes the /remote HTTP surface described in the protocol.
type Agent struct {
	mu           sync.Mutex
	ctx          *SlaveContext
	scheduler    *loadgen.Scheduler
	catalog      *loadgen.Catalog
	reportPeriod time.Duration
	pushCancel   context.CancelFunc
}

// NewAgent constructs an idle agent over catalog, pushing progress every
// reportPeriod once a test spec starts running.
func NewAgent(catalog *loadgen.Catalog, reportPeriod time.Duration) *Agent {
	return &Agent{
		scheduler:    loadgen.NewScheduler(),
		catalog:      catalog,
		reportPeriod: reportPeriod,
	}
}

// Context returns the agent's SlaveContext, or nil if no submission has
// been received yet.
func (a *Agent) Context() *SlaveContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

// HandleRemote implements POST /remote: it decodes the TestSpec body,
// establishes SlaveContext from the request's slave-id/master-addr
// headers (only on the very first submission), and starts the local
// scheduler. It responds 200 once the scheduler has accepted the spec,
// not once the run has finished.
func (a *Agent) HandleRemote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var spec protocol.TestSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "malformed test spec", http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	if a.ctx == nil {
		id := r.Header.Get("X-Nodeload-Slave-Id")
		masterAddr := r.Header.Get("X-Nodeload-Master-Addr")
		a.ctx = &SlaveContext{
			ID:         id,
			MasterAddr: masterAddr,
			Client:     &http.Client{Timeout: 5 * time.Second},
		}
		log.Printf("slaveagent: registered as %q, reporting to %s", id, masterAddr)
	}
	reportCtx := a.ctx
	a.mu.Unlock()

	if err := a.scheduler.Start(spec, a.catalog); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.armProgressPush(reportCtx)

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

// HandleState implements GET /remote/state: 200 while the local scheduler
// is running, 410 once it has stopped (or never started).
func (a *Agent) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Length", "0")
	if a.scheduler.Running() {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusGone)
}

// HandleStop implements POST /remote/stop: instructs the local scheduler
// to stop all tests and responds 200.
func (a *Agent) HandleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.scheduler.StopAll()
	a.mu.Lock()
	if a.pushCancel != nil {
		a.pushCancel()
		a.pushCancel = nil
	}
	a.mu.Unlock()
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

// armProgressPush starts (once) the goroutine that POSTs progress to the
// master every reportPeriod for as long as the scheduler is running, plus
// one final push after it stops so the last interval isn't lost.
func (a *Agent) armProgressPush(sc *SlaveContext) {
	a.mu.Lock()
	if a.pushCancel != nil {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.pushCancel = cancel
	a.mu.Unlock()

	go a.pushLoop(ctx, sc)
}

func (a *Agent) pushLoop(ctx context.Context, sc *SlaveContext) {
	ticker := time.NewTicker(a.reportPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.pushOnce(sc)
			return
		case <-ticker.C:
			a.pushOnce(sc)
			if !a.scheduler.Running() {
				a.mu.Lock()
				a.pushCancel = nil
				a.mu.Unlock()
				return
			}
		}
	}
}

func (a *Agent) pushOnce(sc *SlaveContext) {
	entries := a.scheduler.Stats()
	if len(entries) == 0 || sc == nil || sc.MasterAddr == "" {
		return
	}

	report := protocol.StatReport{SlaveID: sc.ID, Stats: entries}
	data, err := json.Marshal(report)
	if err != nil {
		log.Printf("⚠️ slaveagent: failed to marshal progress report: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.MasterAddr+"/remote/progress", bytes.NewReader(data))
	if err != nil {
		log.Printf("⚠️ slaveagent: failed to build progress request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.Client.Do(req)
	if err != nil {
		log.Printf("⚠️ slaveagent: failed to push progress to %s: %v", sc.MasterAddr, err)
		return
	}
	resp.Body.Close()
}
