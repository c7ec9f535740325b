// Command master runs the nodeload coordination master: it submits a test
// spec to a fixed fleet of slaves (configured at startup), polls liveness,
// merges progress, and reports once the progress window fires.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/larsson/nodeload/internal/archive"
	"github.com/larsson/nodeload/internal/eventbus"
	"github.com/larsson/nodeload/internal/masterpool"
	"github.com/larsson/nodeload/internal/protocol"
	"github.com/larsson/nodeload/internal/report"
	"github.com/larsson/nodeload/internal/stats"
	"github.com/larsson/nodeload/internal/wire"
)

func main() {
	listenAddr := getenv("NODELOAD_LISTEN_ADDR", ":8080")
	masterAddr := getenv("NODELOAD_MASTER_ADDR", "http://localhost"+listenAddr)

	slaves, err := parseSlaves(getenv("NODELOAD_SLAVES", ""))
	if err != nil {
		log.Fatalf("failed to parse NODELOAD_SLAVES: %v", err)
	}
	if len(slaves) == 0 {
		log.Fatalf("NODELOAD_SLAVES is required, e.g. \"slave1:9001,slave2:9001\"")
	}

	cfg := masterpool.DefaultConfig()
	cfg.MasterAddr = masterAddr
	if ms := os.Getenv("NODELOAD_PING_PERIOD_MS"); ms != "" {
		var v int
		fmt.Sscanf(ms, "%d", &v)
		if v > 0 {
			cfg.PingPeriod = time.Duration(v) * time.Millisecond
		}
	}

	var runArchive archive.Archive = archive.NoopArchive{}
	if dsn := os.Getenv("NODELOAD_ARCHIVE_DSN"); dsn != "" {
		pgArchive, err := archive.NewPostgresArchive(context.Background(), dsn)
		if err != nil {
			log.Fatalf("failed to connect archive database: %v", err)
		}
		runArchive = pgArchive
		log.Printf("✅ archiving completed runs to postgres")
	}

	var publisher eventbus.Publisher = eventbus.NewLogPublisher()
	if addr := os.Getenv("NODELOAD_REDIS_ADDR"); addr != "" {
		redisPub, err := eventbus.NewRedisPublisher(addr, os.Getenv("NODELOAD_REDIS_PASSWORD"), 0)
		if err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", addr, err)
		}
		publisher = redisPub
		log.Printf("✅ publishing coordination events to redis at %s", addr)
	}
	defer publisher.Close()

	hub := report.NewReportHub()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	spec := testSpecFromEnv()
	startedAt := time.Now()
	runID := strconv.FormatInt(startedAt.UnixNano(), 36)

	// The registry is cleared before checkFinished invokes the completion
	// callback (per protocol), so the last cumulative view observed via
	// onReport is the only place a final summary survives to archive.
	var lastMu sync.Mutex
	lastCumulative := map[string]stats.Summary{}

	onReport := func(interval map[string]stats.Snapshot, cumulative map[string]stats.Summary) {
		report.RenderConsole(cumulative, os.Stdout)
		hub.Push(interval, cumulative)
		if err := publisher.Publish(context.Background(), eventbus.TopicProgress, cumulative); err != nil {
			log.Printf("⚠️ failed to publish progress event: %v", err)
		}
		lastMu.Lock()
		lastCumulative = cumulative
		lastMu.Unlock()
	}

	pool := masterpool.NewWorkerPool(slaves, cfg, onReport)

	onComplete := func(outcomes []masterpool.SlaveOutcome) {
		log.Printf("✅ run %s complete: %d slave(s)", runID, len(outcomes))
		lastMu.Lock()
		summaries := lastCumulative
		lastMu.Unlock()
		run := archive.RunSummary{
			RunID:      runID,
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
			Spec:       spec,
			Outcomes:   outcomes,
			Summaries:  summaries,
		}
		if err := runArchive.Save(context.Background(), run); err != nil {
			log.Printf("⚠️ failed to archive run %s: %v", runID, err)
		}
		if err := publisher.Publish(context.Background(), eventbus.TopicCompletion, run); err != nil {
			log.Printf("⚠️ failed to publish completion event: %v", err)
		}
	}

	mux := wire.NewMasterMux(pool)
	http.Handle("/remote", mux)
	http.Handle("/remote/", mux)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/ws/report", func(w http.ResponseWriter, r *http.Request) {
		report.ServeWS(hub, w, r)
	})
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		log.Printf("listening on %s", listenAddr)
		if err := http.ListenAndServe(listenAddr, nil); err != nil {
			log.Fatalf("master HTTP server failed: %v", err)
		}
	}()

	pool.Start(spec, onComplete, false)

	select {}
}

func testSpecFromEnv() protocol.TestSpec {
	spec := protocol.TestSpec{
		Generator:    getenv("NODELOAD_TEST_GENERATOR", "noop"),
		Concurrency:  10,
		Duration:     30 * time.Second,
		ReportParams: protocol.DefaultReportParams(),
	}
	if v := os.Getenv("NODELOAD_TEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			spec.Concurrency = n
		}
	}
	if v := os.Getenv("NODELOAD_TEST_DURATION_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			spec.Duration = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("NODELOAD_TEST_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			spec.RateTarget = f
		}
	}
	return spec
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseSlaves(raw string) ([]masterpool.SlaveDescriptor, error) {
	if raw == "" {
		return nil, nil
	}
	var out []masterpool.SlaveDescriptor
	for i, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		host, portStr, err := splitHostPort(entry)
		if err != nil {
			return nil, fmt.Errorf("slave %d (%q): %w", i, entry, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("slave %d (%q): invalid port: %w", i, entry, err)
		}
		out = append(out, masterpool.SlaveDescriptor{ID: entry, Host: host, Port: port})
	}
	return out, nil
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("missing port")
	}
	return addr[:idx], addr[idx+1:], nil
}
