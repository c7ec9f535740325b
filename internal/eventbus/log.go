package eventbus

import (
	"context"
	"encoding/json"
	"log"
)

// LogPublisher is the default Publisher: it writes every event to stdlib
// log. Used until a real backend (e.g. Redis) is configured.
type LogPublisher struct {
	logger *log.Logger
}

// NewLogPublisher returns a LogPublisher writing to the default logger.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.Default()}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.logger.Printf("[eventbus] %s: %s", topic, string(data))
	return nil
}

func (p *LogPublisher) Close() error {
	p.logger.Println("[eventbus] closed LogPublisher")
	return nil
}
