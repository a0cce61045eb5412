// Package realtime pushes workflow events to listeners over Redis Pub/Sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix namespaces every published channel.
const DefaultChannelPrefix = "worksreg:events:"

// Envelope is the message published for each event.
type Envelope struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Published time.Time       `json:"published_at"`
}

// RedisBroadcaster publishes events on one channel per event name.
type RedisBroadcaster struct {
	client *redis.Client
	prefix string
}

// NewRedisBroadcaster creates a broadcaster over an existing client.
func NewRedisBroadcaster(client *redis.Client, prefix string) *RedisBroadcaster {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBroadcaster{client: client, prefix: prefix}
}

// Channel returns the channel an event is published on.
func (b *RedisBroadcaster) Channel(event string) string {
	return b.prefix + event
}

// Broadcast publishes the payload under the event's channel.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Payload: body, Published: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	if err := b.client.Publish(ctx, b.Channel(event), msg).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}
	return nil
}

// Ping checks connectivity.
func (b *RedisBroadcaster) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}
