// Package eventbus publishes coordination-lifecycle events (progress
// rounds, completion) to an out-of-process subscriber. It is not on the
// critical path of merge correctness — a publish failure is logged and
// dropped, never surfaced to the pool.
package eventbus

import (
	"context"
	"time"
)

// Event is one published occurrence: a progress round's aggregate, or the
// pool's completion outcome.
type Event struct {
	Topic     string      `json:"topic"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher is the eventbus collaborator contract: publish a payload under
// a topic, and release any held resources on Close.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// Topic names used by this module.
const (
	TopicProgress   = "nodeload.progress"
	TopicCompletion = "nodeload.completion"
)
