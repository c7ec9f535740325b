package archive

import (
	"context"
	"testing"
	"time"

	"github.com/larsson/nodeload/internal/masterpool"
	"github.com/larsson/nodeload/internal/protocol"
)

func TestNoopArchiveDiscardsSilently(t *testing.T) {
	a := NoopArchive{}
	run := RunSummary{
		RunID:      "run-1",
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		Spec:       protocol.TestSpec{Generator: "noop", Concurrency: 2},
		Outcomes:   []masterpool.SlaveOutcome{{ID: "a", State: masterpool.StateDone}},
	}
	if err := a.Save(context.Background(), run); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
