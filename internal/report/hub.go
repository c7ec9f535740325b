package report

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/larsson/nodeload/internal/stats"
)

const maxHubConnections = 200

// AggregateReport is the payload pushed to every subscribed websocket
// client whenever the progress window fires.
type AggregateReport struct {
	Interval   map[string]stats.Snapshot `json:"interval"`
	Cumulative map[string]stats.Summary  `json:"cumulative"`
}

// ReportHub is the single-broadcaster fan-out of aggregated reports to
// dashboard websocket clients: one goroutine (Run) handles registration,
// unregistration and broadcast, which serializes them; an RWMutex guards
// the client set so ClientCount can read it from other goroutines.
type ReportHub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	push       chan AggregateReport
	mu         sync.RWMutex
}

// NewReportHub creates an idle hub. Call Run to start its event loop.
func NewReportHub() *ReportHub {
	return &ReportHub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		push:       make(chan AggregateReport),
	}
}

// Run is the hub's event loop; it returns when ctx is cancelled, closing
// every registered connection.
func (h *ReportHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case conn := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxHubConnections {
				h.mu.Unlock()
				conn.Close()
				log.Printf("report: connection rejected, max connections (%d) reached", maxHubConnections)
				continue
			}
			h.clients[conn] = struct{}{}
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
		case rpt := <-h.push:
			h.broadcast(rpt)
		}
	}
}

// Register adds conn to the broadcast set.
func (h *ReportHub) Register(conn *websocket.Conn) {
	h.register <- conn
}

// Unregister removes conn from the broadcast set.
func (h *ReportHub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// Push delivers an aggregated report to the hub for broadcast. Intended to
// be wired as the pool's ReportFunc.
func (h *ReportHub) Push(interval map[string]stats.Snapshot, cumulative map[string]stats.Summary) {
	h.push <- AggregateReport{Interval: interval, Cumulative: cumulative}
}

func (h *ReportHub) broadcast(rpt AggregateReport) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(rpt); err != nil {
			log.Printf("report: websocket write error: %v", err)
			go h.Unregister(conn)
		}
	}
}

func (h *ReportHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

// ClientCount returns the number of currently registered clients.
func (h *ReportHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
