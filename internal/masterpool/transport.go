package masterpool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/larsson/nodeload/internal/protocol"
)

// transport owns the HTTP client the pool uses to talk to slaves. Each pool
// owns its own transport; clients are never shared across pools.
type transport struct {
	client *http.Client
}

func newTransport() *transport {
	return &transport{client: &http.Client{Timeout: 5 * time.Second}}
}

// submit POSTs spec to addr's /remote endpoint. slaveID and masterAddr ride
// along as headers so the slave can establish its SlaveContext without the
// closed TestSpec record itself needing to carry protocol plumbing.
// Failures are logged, not returned: dispatch is fire-and-forget from the
// pool's point of view, the ping loop is what actually observes whether a
// slave is alive.
func (t *transport) submit(addr, slaveID, masterAddr string, spec protocol.TestSpec) {
	data, err := json.Marshal(spec)
	if err != nil {
		log.Printf("⚠️ failed to marshal test spec for %s: %v", addr, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/remote", bytes.NewReader(data))
	if err != nil {
		log.Printf("⚠️ failed to build /remote request for %s: %v", addr, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Nodeload-Slave-Id", slaveID)
	req.Header.Set("X-Nodeload-Master-Addr", masterAddr)

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("⚠️ failed to submit test spec to %s: %v", addr, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ slave %s rejected test spec with status %d", addr, resp.StatusCode)
	}
}

// probeState issues the liveness GET against addr's /remote/state. It
// returns StateRunning on 200, StateDone on 410, and an error for anything
// else (including transport failures), leaving the caller to decide how to
// treat an inconclusive probe.
func (t *transport) probeState(addr string) (SlaveState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/remote/state", nil)
	if err != nil {
		return StateError, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return StateError, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return StateRunning, nil
	case http.StatusGone:
		return StateDone, nil
	default:
		return StateError, fmt.Errorf("masterpool: unexpected status %d probing %s", resp.StatusCode, addr)
	}
}

// stop POSTs to addr's /remote/stop. Fire-and-forget, matching the protocol.
func (t *transport) stop(addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/remote/stop", nil)
	if err != nil {
		return
	}
	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("⚠️ failed to stop slave at %s: %v", addr, err)
		return
	}
	resp.Body.Close()
}
