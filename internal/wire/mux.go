// Package wire implements the HTTP wire protocol shared by master and
// slave: the four /remote endpoints, routed by path, with the master- and
// slave-specific handling delegated to masterpool and slaveagent
// respectively. The same process may serve both roles.
package wire

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/larsson/nodeload/internal/masterpool"
	"github.com/larsson/nodeload/internal/observability"
	"github.com/larsson/nodeload/internal/protocol"
	"github.com/larsson/nodeload/internal/slaveagent"
)

// Mux dispatches the /remote family of endpoints by path. Either Pool or
// Agent (or both) may be nil, matching whichever role this process plays;
// a request for a role's endpoint that isn't wired responds 404.
type Mux struct {
	Pool  *masterpool.WorkerPool
	Agent *slaveagent.Agent
}

// NewMasterMux returns a Mux serving only the master-inbound endpoint,
// /remote/progress, against pool.
func NewMasterMux(pool *masterpool.WorkerPool) *Mux {
	return &Mux{Pool: pool}
}

// NewSlaveMux returns a Mux serving only the slave endpoints (/remote,
// /remote/state, /remote/stop) against agent.
func NewSlaveMux(agent *slaveagent.Agent) *Mux {
	return &Mux{Agent: agent}
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/remote":
		if m.Agent == nil {
			http.NotFound(w, r)
			return
		}
		m.Agent.HandleRemote(w, r)
	case "/remote/state":
		if m.Agent == nil {
			http.NotFound(w, r)
			return
		}
		m.Agent.HandleState(w, r)
	case "/remote/stop":
		if m.Agent == nil {
			http.NotFound(w, r)
			return
		}
		m.Agent.HandleStop(w, r)
	case "/remote/progress":
		if m.Pool == nil {
			http.NotFound(w, r)
			return
		}
		m.handleProgress(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProgress implements POST /remote/progress: decode the slave's
// StatReport, apply the per-slave storm-protection limiter, and merge it
// into the pool's Reportable registry.
func (m *Mux) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var report protocol.StatReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "malformed progress report", http.StatusBadRequest)
		return
	}

	if !m.Pool.Allow(report.SlaveID) {
		observability.StormProtectionTrips.WithLabelValues(report.SlaveID).Inc()
		log.Printf("⚠️ wire: storm protection dropped progress from slave %s", report.SlaveID)
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	m.Pool.ReceiveProgress(report)

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}
