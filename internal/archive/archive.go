// Package archive persists a RunSummary once a test run's pool completion
// callback fires. Archiving is an optional side effect: the core's
// correctness never depends on an archive write succeeding.
package archive

import (
	"context"
	"time"

	"github.com/larsson/nodeload/internal/masterpool"
	"github.com/larsson/nodeload/internal/protocol"
	"github.com/larsson/nodeload/internal/stats"
)

// RunSummary is the final snapshot taken at the moment the pool's
// completion callback fires. It does not participate in merge semantics
// and is never read back by the core.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Spec       protocol.TestSpec
	Outcomes   []masterpool.SlaveOutcome
	Summaries  map[string]stats.Summary
}

// Archive persists a completed run's summary.
type Archive interface {
	Save(ctx context.Context, run RunSummary) error
	Close() error
}

// NoopArchive discards every run. Used when no archive DSN is configured.
type NoopArchive struct{}

func (NoopArchive) Save(ctx context.Context, run RunSummary) error { return nil }
func (NoopArchive) Close() error                                   { return nil }
