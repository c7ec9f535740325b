package loadgen

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/larsson/nodeload/internal/protocol"
	"github.com/larsson/nodeload/internal/stats"
)

// Scheduler is the slave's local scheduler collaborator: it drives a
// RequestGenerator at a fixed concurrency and (optional) rate target for a
// fixed duration, recording latencies into a Histogram named "latency" and
// outcomes into a ResultsCounter named "requests". It exposes exactly the
// contract the slave agent needs: Running() and StopAll().
type Scheduler struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	latency  *stats.Histogram
	requests *stats.ResultsCounter
}

// NewScheduler returns an idle scheduler. Start must be called to begin a
// run.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Running reports whether a test is currently executing.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// StopAll cancels the in-flight run, if any. Workers exit at their next
// iteration; Running() flips to false once the last worker returns.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Start resolves spec.Generator against catalog and runs it for
// spec.Duration across spec.Concurrency workers, each throttled (if
// RateTarget > 0) by a shared token-bucket limiter. Start returns once the
// generator has been resolved and workers have been launched; it does not
// block for the run's duration.
func (s *Scheduler) Start(spec protocol.TestSpec, catalog *Catalog) error {
	gen, err := catalog.Resolve(spec.Generator)
	if err != nil {
		return err
	}

	numBuckets := spec.ReportParams.NumBuckets
	percentiles := spec.ReportParams.Percentiles

	s.mu.Lock()
	s.latency = stats.NewHistogram(numBuckets, percentiles)
	s.requests = stats.NewResultsCounter()
	ctx, cancel := context.WithTimeout(context.Background(), spec.Duration)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	var limiter *rate.Limiter
	if spec.RateTarget > 0 {
		limiter = rate.NewLimiter(rate.Limit(spec.RateTarget), int(spec.RateTarget)+1)
	}

	var wg sync.WaitGroup
	for i := 0; i < spec.Concurrency; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, gen, limiter)
	}

	go func() {
		wg.Wait()
		cancel()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		log.Printf("loadgen: run against %q finished", spec.Generator)
	}()

	return nil
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, gen RequestGenerator, limiter *rate.Limiter) {
	defer wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		started := time.Now()
		outcome, err := gen.Do(ctx)
		elapsed := time.Since(started)

		s.mu.Lock()
		s.latency.Put(float64(elapsed.Milliseconds()))
		if err != nil && outcome == "" {
			outcome = "error"
		}
		s.requests.PutKey(outcome)
		s.mu.Unlock()
	}
}

// Stats returns the current interval snapshots for "latency" and "requests"
// and clears their interval state, ready for the next progress push. It is
// safe to call even while workers are actively putting samples.
func (s *Scheduler) Stats() []protocol.StatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latency == nil || s.requests == nil {
		return nil
	}

	entries := []protocol.StatEntry{
		{Name: "latency", AddToHTTPReport: true, Interval: s.latency.ToSnapshot()},
		{Name: "requests", AddToHTTPReport: true, Interval: s.requests.ToSnapshot()},
	}
	s.latency.Clear()
	s.requests.Clear()
	return entries
}
