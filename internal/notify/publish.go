package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultChannel is the pub/sub channel change events are published on.
	DefaultChannel = "channelvault:changes"
	// DefaultLog is the Redis list holding the most recent change events, newest first.
	DefaultLog = "channelvault:changes:log"
)

// ChangeEvent describes one applied catalog mutation.
type ChangeEvent struct {
	Action string    `json:"action"`
	Names  []string  `json:"names,omitempty"`
	Count  int       `json:"count"`
	At     time.Time `json:"at"`
}

// Publisher receives change events after a mutation has been applied.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Nop discards every event. Used when Redis is not configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, ChangeEvent) error { return nil }

// RedisPublisher publishes events on a pub/sub channel and keeps a capped history list.
type RedisPublisher struct {
	r       *Redis
	channel string
	log     string
	history int64
}

// NewRedisPublisher creates a publisher keeping the last history events.
// A history of 0 or less disables the list.
func NewRedisPublisher(r *Redis, history int64) *RedisPublisher {
	return &RedisPublisher{r: r, channel: DefaultChannel, log: DefaultLog, history: history}
}

// Publish sends ev to subscribers and records it in the history list.
func (p *RedisPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify marshal: %w", err)
	}
	pipe := p.r.client.TxPipeline()
	pipe.Publish(ctx, p.channel, data)
	if p.history > 0 {
		pipe.LPush(ctx, p.log, data)
		pipe.LTrim(ctx, p.log, 0, p.history-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify publish: %w", err)
	}
	return nil
}

// Recent returns up to n events from the history list, newest first.
func Recent(ctx context.Context, r *Redis, n int64) ([]ChangeEvent, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, DefaultLog, 0, n-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("notify recent: %w", err)
	}
	events := make([]ChangeEvent, 0, len(raw))
	for _, s := range raw {
		var ev ChangeEvent
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			return nil, fmt.Errorf("notify unmarshal: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
