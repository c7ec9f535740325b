package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events to a Redis pub/sub channel, one channel
// per topic, for out-of-process subscribers (e.g. a separate dashboard
// process) that want the raw event stream without polling the master's
// HTTP surface.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to addr and verifies the connection with a
// PING before returning.
func NewRedisPublisher(addr, password string, db int) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(Event{Topic: topic, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, topic, data).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
