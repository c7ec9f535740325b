// Command slave runs the nodeload load-generating slave: it accepts a
// submitted TestSpec from the master, drives the resolved request
// generator against the local scheduler, and pushes progress back.
package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/larsson/nodeload/internal/loadgen"
	"github.com/larsson/nodeload/internal/slaveagent"
	"github.com/larsson/nodeload/internal/wire"
)

func main() {
	listenAddr := getenv("NODELOAD_LISTEN_ADDR", ":9001")

	reportPeriod := time.Second
	if ms := os.Getenv("NODELOAD_REPORT_PERIOD_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			reportPeriod = time.Duration(v) * time.Millisecond
		}
	}

	catalog := loadgen.NewDefaultCatalog()
	if url := os.Getenv("NODELOAD_HTTP_TARGET"); url != "" {
		loadgen.RegisterHTTPTarget(catalog, "http", url)
		log.Printf("registered \"http\" generator targeting %s", url)
	}

	agent := slaveagent.NewAgent(catalog, reportPeriod)
	mux := wire.NewSlaveMux(agent)

	http.Handle("/remote", mux)
	http.Handle("/remote/", mux)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Printf("slave listening on %s, catalog: %v", listenAddr, catalog.Names())
	log.Fatal(http.ListenAndServe(listenAddr, nil))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
