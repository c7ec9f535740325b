package masterpool

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/larsson/nodeload/internal/protocol"
	"github.com/larsson/nodeload/internal/stats"
)

// testSlave is a minimal /remote, /remote/state, /remote/stop stand-in,
// letting pool tests drive sendPings/ReceiveProgress without a real slave
// process.
type testSlave struct {
	mu    sync.Mutex
	state int // 0 = 200 (running), 1 = 410 (done), 2 = hang (no response)
	srv   *httptest.Server
}

func newTestSlave() *testSlave {
	s := &testSlave{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/remote":
			w.WriteHeader(http.StatusOK)
		case "/remote/state":
			s.mu.Lock()
			st := s.state
			s.mu.Unlock()
			switch st {
			case 1:
				w.WriteHeader(http.StatusGone)
			case 2:
				// leave the client to fail on context deadline
				time.Sleep(4 * time.Second)
			default:
				w.WriteHeader(http.StatusOK)
			}
		case "/remote/stop":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return s
}

func (s *testSlave) setState(v int) {
	s.mu.Lock()
	s.state = v
	s.mu.Unlock()
}

func (s *testSlave) close() { s.srv.Close() }

func descriptorFor(id string, srv *httptest.Server) SlaveDescriptor {
	u := srv.URL // http://127.0.0.1:PORT
	host, port := splitTestURL(u)
	return SlaveDescriptor{ID: id, Host: host, Port: port}
}

// splitTestURL extracts host/port out of an httptest.Server URL for building
// a SlaveDescriptor the same way production code would from NODELOAD_SLAVES.
func splitTestURL(u string) (string, int) {
	// u looks like "http://127.0.0.1:54321"
	rest := u[len("http://"):]
	idx := 0
	for i, c := range rest {
		if c == ':' {
			idx = i
			break
		}
	}
	host := rest[:idx]
	port := 0
	for _, c := range rest[idx+1:] {
		if c < '0' || c > '9' {
			break
		}
		port = port*10 + int(c-'0')
	}
	return host, port
}

func testConfig() Config {
	return Config{
		PingPeriod:      30 * time.Millisecond,
		ProgressWindow:  20 * time.Millisecond,
		StormRatePerSec: 1000,
		StormBurst:      1000,
		MasterAddr:      "http://master.test",
	}
}

func histogramSnapshot(samples ...float64) stats.Snapshot {
	h := stats.NewHistogram(100, []float64{0.95})
	for _, s := range samples {
		h.Put(s)
	}
	return h.ToSnapshot()
}

func TestWorkerPoolTwoSlaveHappyPathMerge(t *testing.T) {
	s1, s2 := newTestSlave(), newTestSlave()
	defer s1.close()
	defer s2.close()
	s1.setState(1)
	s2.setState(1)

	slaves := []SlaveDescriptor{descriptorFor("s1", s1.srv), descriptorFor("s2", s2.srv)}

	var reportMu sync.Mutex
	var lastCumulative map[string]stats.Summary
	onReport := func(_ map[string]stats.Snapshot, cumulative map[string]stats.Summary) {
		reportMu.Lock()
		lastCumulative = cumulative
		reportMu.Unlock()
	}

	pool := NewWorkerPool(slaves, testConfig(), onReport)

	done := make(chan []SlaveOutcome, 1)
	pool.Start(protocol.TestSpec{Generator: "noop"}, func(o []SlaveOutcome) { done <- o }, false)

	pool.ReceiveProgress(protocol.StatReport{
		SlaveID: "s1",
		Stats: []protocol.StatEntry{
			{Name: "latency", Interval: histogramSnapshot(10, 20, 30)},
		},
	})
	pool.ReceiveProgress(protocol.StatReport{
		SlaveID: "s2",
		Stats: []protocol.StatEntry{
			{Name: "latency", Interval: histogramSnapshot(40, 50)},
		},
	})

	time.Sleep(60 * time.Millisecond)

	reportMu.Lock()
	cum := lastCumulative
	reportMu.Unlock()
	if cum == nil {
		t.Fatal("onReport never fired")
	}
	summary := cum["latency"]
	if length, _ := summary["length"].(int64); length != 5 {
		t.Errorf("cumulative summary length = %v, want 5 (3 from s1 + 2 from s2): %+v", summary["length"], summary)
	}

	select {
	case outcomes := <-done:
		if len(outcomes) != 2 {
			t.Errorf("got %d outcomes, want 2", len(outcomes))
		}
		for _, o := range outcomes {
			if o.State != StateDone {
				t.Errorf("slave %s state = %v, want done", o.ID, o.State)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback never fired")
	}
}

func TestWorkerPoolUnknownSlaveIDDropsSilently(t *testing.T) {
	s1 := newTestSlave()
	defer s1.close()
	s1.setState(1)

	pool := NewWorkerPool([]SlaveDescriptor{descriptorFor("s1", s1.srv)}, testConfig(), nil)
	pool.Start(protocol.TestSpec{Generator: "noop"}, func([]SlaveOutcome) {}, false)

	// Should not panic, not register a stat, not affect the known slave.
	pool.ReceiveProgress(protocol.StatReport{
		SlaveID: "ghost",
		Stats: []protocol.StatEntry{
			{Name: "latency", Interval: histogramSnapshot(1)},
		},
	})

	if names := pool.registry.Names(); len(names) != 0 {
		t.Errorf("registry.Names() = %v, want empty (unknown slave report should be dropped)", names)
	}
}

func TestWorkerPoolIncompatibleMergeSurfacesErrorNotPanic(t *testing.T) {
	s1 := newTestSlave()
	defer s1.close()
	s1.setState(1)

	pool := NewWorkerPool([]SlaveDescriptor{descriptorFor("s1", s1.srv)}, testConfig(), nil)
	pool.Start(protocol.TestSpec{Generator: "noop"}, func([]SlaveOutcome) {}, false)

	pool.ReceiveProgress(protocol.StatReport{
		SlaveID: "s1",
		Stats: []protocol.StatEntry{
			{Name: "latency", Interval: histogramSnapshot(1, 2)},
		},
	})
	// Same stat name, incompatible kind: must not panic, the entry is just
	// dropped and counted as a merge error.
	pool.ReceiveProgress(protocol.StatReport{
		SlaveID: "s1",
		Stats: []protocol.StatEntry{
			{Name: "latency", Interval: stats.Snapshot{Type: "Accumulator", Fields: map[string]interface{}{"total": 1.0, "length": 1}}},
		},
	})

	rep, ok := pool.registry.Get("latency")
	if !ok {
		t.Fatal("expected a latency Reportable to exist")
	}
	if rep.Kind != "Histogram" {
		t.Errorf("Kind = %q, want Histogram (first-seen kind wins)", rep.Kind)
	}
}

func TestWorkerPoolProgressCoalescingWithinWindow(t *testing.T) {
	s1 := newTestSlave()
	defer s1.close()
	s1.setState(1)

	var reportCount int
	var mu sync.Mutex
	onReport := func(map[string]stats.Snapshot, map[string]stats.Summary) {
		mu.Lock()
		reportCount++
		mu.Unlock()
	}

	cfg := testConfig()
	cfg.ProgressWindow = 100 * time.Millisecond
	pool := NewWorkerPool([]SlaveDescriptor{descriptorFor("s1", s1.srv)}, cfg, onReport)
	pool.Start(protocol.TestSpec{Generator: "noop"}, func([]SlaveOutcome) {}, false)

	for i := 0; i < 5; i++ {
		pool.ReceiveProgress(protocol.StatReport{
			SlaveID: "s1",
			Stats: []protocol.StatEntry{
				{Name: "latency", Interval: histogramSnapshot(float64(i))},
			},
		})
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	n := reportCount
	mu.Unlock()
	if n != 1 {
		t.Errorf("onReport fired %d times for 5 reports inside one window, want exactly 1", n)
	}
}

func TestWorkerPoolStragglerMarkedErrorAfterMissedPing(t *testing.T) {
	alive := newTestSlave()
	defer alive.close()
	alive.setState(1)

	stuck := newTestSlave()
	defer stuck.close()
	stuck.setState(2) // always hangs past the probe deadline

	cfg := testConfig()
	cfg.PingPeriod = 20 * time.Millisecond

	slaves := []SlaveDescriptor{descriptorFor("alive", alive.srv), descriptorFor("stuck", stuck.srv)}
	done := make(chan []SlaveOutcome, 1)
	pool := NewWorkerPool(slaves, cfg, nil)
	pool.Start(protocol.TestSpec{Generator: "noop"}, func(o []SlaveOutcome) { done <- o }, false)

	select {
	case outcomes := <-done:
		var sawStuckError bool
		for _, o := range outcomes {
			if o.ID == "stuck" && o.State == StateError {
				sawStuckError = true
			}
		}
		if !sawStuckError {
			t.Errorf("outcomes = %+v, want stuck marked error", outcomes)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("completion callback never fired for straggler scenario")
	}
}
